package repository

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	_ "github.com/lib/pq"
	"github.com/user/moviesite/internal/config"
	"github.com/user/moviesite/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 初始化数据库连接
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Info
	if cfg.IsProduction() {
		logLevel = logger.Warn
	}
	gormLogger := logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  logLevel,
		IgnoreRecordNotFoundError: true,
		Colorful:                  !cfg.IsProduction(),
	})
	gormCfg := &gorm.Config{Logger: gormLogger, TranslateError: true}

	if cfg.DBDriver == "sqlite" {
		return OpenSQLite(cfg.SQLitePath, gormCfg)
	}

	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("gorm 初始化失败: %w", err)
	}
	return db, nil
}

// OpenSQLite 打开 sqlite 数据库（开发与测试使用），path 可为 ":memory:"
func OpenSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if gormCfg == nil {
		gormCfg = &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true}
	}
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("打开 sqlite 失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite 单写者；内存库必须固定在同一个连接上
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate 自动迁移所有表并写入内置权限
func Migrate(db *gorm.DB) error {
	log.Println("running AutoMigrate")
	err := db.AutoMigrate(
		&model.Permission{},
		&model.Group{},
		&model.User{},
		&model.Genre{},
		&model.Movie{},
		&model.Comment{},
		&model.UserProfile{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := NewGroupRepository(db).SeedPermissions(); err != nil {
		return fmt.Errorf("seed permissions: %w", err)
	}
	log.Println("migrations complete")
	return nil
}

// Repositories 仓库集合
type Repositories struct {
	DB      *gorm.DB
	User    *UserRepository
	Genre   *GenreRepository
	Movie   *MovieRepository
	Comment *CommentRepository
	Profile *ProfileRepository
	Group   *GroupRepository
}

// Transaction 在同一事务中执行 fn，fn 收到绑定该事务的仓库集合
func (r *Repositories) Transaction(fn func(tx *Repositories) error) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:      db,
		User:    NewUserRepository(db),
		Genre:   NewGenreRepository(db),
		Movie:   NewMovieRepository(db),
		Comment: NewCommentRepository(db),
		Profile: NewProfileRepository(db),
		Group:   NewGroupRepository(db),
	}
}

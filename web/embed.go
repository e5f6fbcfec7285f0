// Package web 内嵌页面模板与静态资源。
package web

import "embed"

// FS 包含 templates/ 与 static/
//
//go:embed templates static
var FS embed.FS

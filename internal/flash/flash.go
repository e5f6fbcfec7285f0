// Package flash 一次性提示消息。
//
// 处理器在返回前把消息挂到当前响应上；渲染页面时取出展示，
// 重定向时写入 session，在下一次渲染的页面上展示一次。
package flash

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Level 消息级别，与页面样式类名一致
type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Warning Level = "warning"
	Error   Level = "error"
)

// Message 一条提示消息
type Message struct {
	Level Level
	Text  string
}

const (
	contextKey = "flash.messages"
	sessionKey = "_flash"
)

func init() {
	gob.Register(Message{})
}

// Add 给当前响应追加一条消息
func Add(c *gin.Context, level Level, text string) {
	c.Set(contextKey, append(pending(c), Message{Level: level, Text: text}))
}

func pending(c *gin.Context) []Message {
	if v, ok := c.Get(contextKey); ok {
		if msgs, ok := v.([]Message); ok {
			return msgs
		}
	}
	return nil
}

// Persist 将当前响应的消息写入 session，供重定向后的页面展示
func Persist(c *gin.Context) {
	msgs := pending(c)
	if len(msgs) == 0 {
		return
	}
	session := sessions.Default(c)
	for _, m := range msgs {
		session.AddFlash(m, sessionKey)
	}
	session.Save()
	c.Set(contextKey, []Message(nil))
}

// Consume 取出上一次重定向留下的消息与当前响应的消息，取出后即清空
func Consume(c *gin.Context) []Message {
	var msgs []Message

	session := sessions.Default(c)
	if stored := session.Flashes(sessionKey); len(stored) > 0 {
		for _, v := range stored {
			if m, ok := v.(Message); ok {
				msgs = append(msgs, m)
			}
		}
		session.Save()
	}

	msgs = append(msgs, pending(c)...)
	c.Set(contextKey, []Message(nil))
	return msgs
}

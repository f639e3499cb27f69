// Package logger 初始化全局 logrus
package logger

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/qs3c/sub_go_server/config"
)

// Init 按配置设置日志级别和格式
func Init(cfg config.LogConfig) {
	Setup(cfg, os.Stdout)
}

// Setup 同 Init，可指定输出
func Setup(cfg config.LogConfig, out io.Writer) {
	log.SetOutput(out)

	level, err := log.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
		return
	}
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

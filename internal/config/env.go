package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// EnvLoader .env 文件加载器
// @author: sun977
// @date: 2025.01.14
// @description: 启动时把 .env 中的变量注入进程环境，供 ConfigLoader 的 BindEnv 读取。
// 已存在的进程环境变量不会被覆盖，文件不存在时跳过
type EnvLoader struct {
	envFiles []string
	loaded   []string
}

// NewEnvLoader 创建加载器，未指定文件时依次尝试 .env 和 .env.<NEOSCAN_ENV>
func NewEnvLoader(envFiles ...string) *EnvLoader {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
		if env := os.Getenv(EnvPrefix + "_ENV"); env != "" {
			envFiles = append(envFiles, ".env."+env)
		}
	}
	return &EnvLoader{envFiles: envFiles}
}

// Load 按顺序加载，先加载的文件优先
func (e *EnvLoader) Load() error {
	for _, envFile := range e.envFiles {
		if _, err := os.Stat(envFile); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
		e.loaded = append(e.loaded, envFile)
	}
	return nil
}

// Loaded 返回实际加载的文件
func (e *EnvLoader) Loaded() []string {
	return e.loaded
}

// Package docutil 提供本地文档发现与读取的工具函数。
package docutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultExtensions 是目录导入时默认收集的文本文件扩展名。
var DefaultExtensions = []string{".txt", ".md", ".mdx", ".rst"}

// ErrNotUTF8 文件内容不是合法的 UTF-8 文本。
var ErrNotUTF8 = errors.New("file must be UTF-8 encoded text")

// FindFiles 递归查找 dir 下扩展名匹配的文件（大小写不敏感），结果按路径排序。
// 以 "." 开头的目录会被跳过。extensions 为空时使用 DefaultExtensions。
func FindFiles(dir string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	extMap := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extMap[ext] = true
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if extMap[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadText 读取文件并校验为 UTF-8 文本。
func ReadText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(content) {
		return "", fmt.Errorf("%s: %w", path, ErrNotUTF8)
	}
	return string(content), nil
}

// DirExists 检查目录是否存在。
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

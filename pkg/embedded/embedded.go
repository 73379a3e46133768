// Package embedded 提供嵌入关卡数据的统一访问接口
//
// 由于 Go embed 指令只能嵌入当前包目录及其子目录的文件，
// embed.FS 变量必须声明在项目根目录（embed.go）。
// 本包提供包装函数，让其他包可以访问嵌入的关卡文件。
//
// 使用前必须调用 Init() 初始化。
package embedded

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gonewx/aimburst/pkg/config"
)

// LevelsDir 关卡文件所在目录
const LevelsDir = "data/levels"

var (
	dataFS      fs.FS
	initialized bool
)

var errNotInitialized = fmt.Errorf("embedded package not initialized, call Init() first")

// Init 初始化数据文件系统
// 必须在 main() 开始时、任何关卡加载之前调用
func Init(data fs.FS) {
	dataFS = data
	initialized = data != nil
}

// IsInitialized 返回 embedded 包是否已初始化
func IsInitialized() bool {
	return initialized
}

// normalize 统一路径分隔符并校验 "data/" 前缀
func normalize(p string) (string, error) {
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, "./")
	if !strings.HasPrefix(p, "data/") {
		return "", fmt.Errorf("unknown resource path prefix: %s (must start with 'data/')", p)
	}
	return p, nil
}

// ReadFile 读取文件内容，路径必须以 "data/" 开头
func ReadFile(p string) ([]byte, error) {
	if !initialized {
		return nil, errNotInitialized
	}
	p, err := normalize(p)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(dataFS, p)
}

// Exists 检查文件是否存在
func Exists(p string) bool {
	if !initialized {
		return false
	}
	p, err := normalize(p)
	if err != nil {
		return false
	}
	_, err = fs.Stat(dataFS, p)
	return err == nil
}

// Glob 匹配文件，模式必须以 "data/" 开头
func Glob(pattern string) ([]string, error) {
	if !initialized {
		return nil, errNotInitialized
	}
	pattern, err := normalize(pattern)
	if err != nil {
		return nil, err
	}
	return fs.Glob(dataFS, pattern)
}

// LevelIDs 返回所有内置关卡的 ID（文件名去掉 .yaml），按自然顺序排列
func LevelIDs() ([]string, error) {
	files, err := Glob(LevelsDir + "/*.yaml")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, strings.TrimSuffix(path.Base(f), ".yaml"))
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids, nil
}

// LoadLevel 加载并校验一个内置关卡
//
// 参数：
//   - id: 关卡ID，对应 data/levels/<id>.yaml
func LoadLevel(id string) (*config.LevelConfig, error) {
	data, err := ReadFile(path.Join(LevelsDir, id+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read level %s: %w", id, err)
	}
	cfg, err := config.ParseLevelConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse level %s: %w", id, err)
	}
	return cfg, nil
}

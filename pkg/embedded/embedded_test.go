package embedded

import (
	"fmt"
	"testing"
	"testing/fstest"
)

const levelYAML = `
id: "%s"
columns:
  - sets:
      - {color: red, count: 1}
lanes:
  - shooters:
      - {color: red, ammo: 1}
`

func level(id string) []byte {
	return []byte(fmt.Sprintf(levelYAML, id))
}

func initTestFS(t *testing.T) {
	t.Helper()
	Init(fstest.MapFS{
		"data/levels/1.yaml":   {Data: level("1")},
		"data/levels/2.yaml":   {Data: level("2")},
		"data/levels/10.yaml":  {Data: level("10")},
		"data/levels/bad.yaml": {Data: []byte("id: bad\ncolumns: []\n")},
		"data/readme.txt":      {Data: []byte("hello")},
	})
	t.Cleanup(func() {
		dataFS = nil
		initialized = false
	})
}

// TestNotInitialized 测试未初始化时的行为
func TestNotInitialized(t *testing.T) {
	initialized = false

	if IsInitialized() {
		t.Error("Expected IsInitialized() to return false before Init()")
	}
	if _, err := ReadFile("data/levels/1.yaml"); err == nil {
		t.Error("Expected error when calling ReadFile() before Init()")
	}
	if _, err := Glob("data/levels/*.yaml"); err == nil {
		t.Error("Expected error when calling Glob() before Init()")
	}
	if Exists("data/levels/1.yaml") {
		t.Error("Expected Exists() to return false before Init()")
	}
}

// TestInvalidPrefix 测试非 data/ 前缀的路径
func TestInvalidPrefix(t *testing.T) {
	initTestFS(t)

	tests := []struct {
		name string
		path string
	}{
		{"资源目录", "assets/images/logo.png"},
		{"无前缀", "levels/1.yaml"},
		{"绝对路径", "/data/levels/1.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadFile(tt.path); err == nil {
				t.Errorf("Expected error for path %q", tt.path)
			}
		})
	}
}

// TestPathNormalization 测试路径标准化
func TestPathNormalization(t *testing.T) {
	initTestFS(t)

	for _, p := range []string{"data/readme.txt", "./data/readme.txt"} {
		data, err := ReadFile(p)
		if err != nil {
			t.Fatalf("ReadFile(%q) failed: %v", p, err)
		}
		if string(data) != "hello" {
			t.Errorf("ReadFile(%q): got %q", p, data)
		}
	}
	if !Exists("./data/levels/1.yaml") {
		t.Error("Expected level 1 to exist")
	}
}

// TestLevelIDs 测试关卡ID按自然顺序排列
func TestLevelIDs(t *testing.T) {
	initTestFS(t)

	ids, err := LevelIDs()
	if err != nil {
		t.Fatalf("LevelIDs() failed: %v", err)
	}
	want := []string{"1", "2", "10", "bad"}
	if len(ids) != len(want) {
		t.Fatalf("Expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d]: got %q, want %q", i, ids[i], want[i])
		}
	}
}

// TestLoadLevel 测试加载内置关卡
func TestLoadLevel(t *testing.T) {
	initTestFS(t)

	cfg, err := LoadLevel("2")
	if err != nil {
		t.Fatalf("LoadLevel() failed: %v", err)
	}
	if cfg.ID != "2" || len(cfg.Columns) != 1 || len(cfg.Lanes) != 1 {
		t.Errorf("Unexpected level: %+v", cfg)
	}

	if _, err := LoadLevel("missing"); err == nil {
		t.Error("Expected error for a missing level")
	}
	if _, err := LoadLevel("bad"); err == nil {
		t.Error("Expected validation error for a level without columns")
	}
}

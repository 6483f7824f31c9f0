package platform

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestIs64Bit(t *testing.T) {
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		if !Is64Bit {
			t.Error("Platform should be 64-bit")
		}
	}
}

func TestAndroidLibDirs(t *testing.T) {
	tests := []struct {
		is64 bool
		want []string
	}{
		{true, []string{"/apex/com.android.art/lib64", "/system/lib64"}},
		{false, []string{"/apex/com.android.art/lib", "/system/lib"}},
	}
	for _, tt := range tests {
		got := androidLibDirs(tt.is64)
		if strings.Join(got, ":") != strings.Join(tt.want, ":") {
			t.Errorf("androidLibDirs(%v) = %v, want %v", tt.is64, got, tt.want)
		}
	}
}

func TestSearchPathsAndroid(t *testing.T) {
	if !IsAndroid() {
		t.Skip("test only applies to android")
	}
	paths := SearchPaths("")
	want := androidLibDirs(Is64Bit)
	if strings.Join(paths, ":") != strings.Join(want, ":") {
		t.Errorf("SearchPaths(\"\") = %v, want %v", paths, want)
	}
}

func TestLibraryExtension(t *testing.T) {
	switch runtime.GOOS {
	case "darwin":
		if LibraryExtension != ".dylib" {
			t.Errorf("expected .dylib, got %s", LibraryExtension)
		}
	case "windows":
		if LibraryExtension != ".dll" {
			t.Errorf("expected .dll, got %s", LibraryExtension)
		}
	default:
		if LibraryExtension != ".so" {
			t.Errorf("expected .so, got %s", LibraryExtension)
		}
	}
}

func TestFormatLibraryName(t *testing.T) {
	tests := []struct {
		name string
		goos string
		want string
	}{
		{"jvm", "linux", "libjvm.so"},
		{"art", "android", "libart.so"},
		{"jvm", "darwin", "libjvm.dylib"},
		{"jvm", "windows", "jvm.dll"},
	}

	for _, tt := range tests {
		t.Run(tt.name+"_"+tt.goos, func(t *testing.T) {
			if runtime.GOOS != tt.goos {
				t.Skipf("test only applies to %s", tt.goos)
			}
			if got := FormatLibraryName(tt.name); got != tt.want {
				t.Errorf("FormatLibraryName(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestRuntimeLibraries(t *testing.T) {
	libs := RuntimeLibraries()
	if len(libs) == 0 {
		t.Fatal("RuntimeLibraries should not be empty")
	}
	if IsAndroid() && libs[0] != "nativehelper" {
		t.Errorf("on android the first candidate should be nativehelper, got %q", libs[0])
	}
	if !IsAndroid() && libs[0] != "jvm" {
		t.Errorf("first candidate = %q, want jvm", libs[0])
	}
}

func TestSearchPathsJavaHomeFirst(t *testing.T) {
	home := filepath.Join("opt", "jdk")
	paths := SearchPaths(home)
	if len(paths) == 0 {
		t.Fatal("SearchPaths should return at least one path")
	}
	if want := filepath.Join(home, "lib", "server"); paths[0] != want {
		t.Errorf("paths[0] = %q, want %q", paths[0], want)
	}
}

func TestSearchPathsWithoutJavaHome(t *testing.T) {
	t.Setenv("LD_LIBRARY_PATH", "")
	t.Setenv("DYLD_LIBRARY_PATH", "")
	for _, p := range SearchPaths("") {
		if p == filepath.Join("lib", "server") {
			t.Errorf("unexpected relative JAVA_HOME path %q", p)
		}
	}
}

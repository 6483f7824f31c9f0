// Package platform provides platform facts used when locating the managed
// runtime's shared libraries.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"unsafe"
)

// Is64Bit indicates whether the platform is 64-bit. It picks between the
// lib64 and lib directories of an Android system image.
const Is64Bit = unsafe.Sizeof(uintptr(0)) == 8

// LibraryExtension is the file extension for shared libraries on this platform.
var LibraryExtension string

// LibraryPrefix is the prefix for shared library names on this platform.
var LibraryPrefix string

func init() {
	switch runtime.GOOS {
	case "darwin":
		LibraryExtension = ".dylib"
		LibraryPrefix = "lib"
	case "windows":
		LibraryExtension = ".dll"
		LibraryPrefix = ""
	default: // linux, android, freebsd
		LibraryExtension = ".so"
		LibraryPrefix = "lib"
	}
}

// FormatLibraryName returns the platform-specific library filename.
//
// Examples:
//   - Linux:   FormatLibraryName("jvm") -> "libjvm.so"
//   - macOS:   FormatLibraryName("jvm") -> "libjvm.dylib"
//   - Windows: FormatLibraryName("jvm") -> "jvm.dll"
func FormatLibraryName(name string) string {
	return fmt.Sprintf("%s%s%s", LibraryPrefix, name, LibraryExtension)
}

// IsAndroid reports whether we are running on Android.
func IsAndroid() bool {
	return runtime.GOOS == "android"
}

// RuntimeLibraries returns the libraries that may export the JNI invocation
// API (JNI_GetCreatedJavaVMs, JNI_CreateJavaVM), most specific first.
func RuntimeLibraries() []string {
	if IsAndroid() {
		// libnativehelper exports the invocation API from API 31 on;
		// older releases only have it in libart.
		return []string{"nativehelper", "art"}
	}
	return []string{"jvm"}
}

// SearchPaths returns directories to search for runtime libraries.
// javaHome is usually os.Getenv("JAVA_HOME") and may be empty.
func SearchPaths(javaHome string) []string {
	var paths []string

	if javaHome != "" {
		paths = append(paths,
			filepath.Join(javaHome, "lib", "server"),
			filepath.Join(javaHome, "jre", "lib", "server"),
			filepath.Join(javaHome, "jre", "lib", jreArch(), "server"),
			filepath.Join(javaHome, "bin", "server"),
		)
	}

	switch runtime.GOOS {
	case "android":
		paths = append(paths, androidLibDirs(Is64Bit)...)
	case "linux", "freebsd":
		if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
			paths = append(paths, filepath.SplitList(ldPath)...)
		}
		paths = append(paths,
			"/usr/lib/jvm/default-java/lib/server",
			"/usr/lib/jvm/java-17-openjdk-"+debArch()+"/lib/server",
			"/usr/lib/jvm/java-21-openjdk-"+debArch()+"/lib/server",
			"/usr/local/lib",
			"/usr/lib",
		)
	case "darwin":
		if dyldPath := os.Getenv("DYLD_LIBRARY_PATH"); dyldPath != "" {
			paths = append(paths, filepath.SplitList(dyldPath)...)
		}
		paths = append(paths,
			"/opt/homebrew/opt/openjdk/libexec/openjdk.jdk/Contents/Home/lib/server",
			"/usr/local/opt/openjdk/libexec/openjdk.jdk/Contents/Home/lib/server",
		)
	case "windows":
		if winPath := os.Getenv("PATH"); winPath != "" {
			paths = append(paths, filepath.SplitList(winPath)...)
		}
	}

	return paths
}

// androidLibDirs returns the directories holding the ART runtime libraries
// for a 64-bit or 32-bit process.
func androidLibDirs(is64 bool) []string {
	if is64 {
		return []string{"/apex/com.android.art/lib64", "/system/lib64"}
	}
	return []string{"/apex/com.android.art/lib", "/system/lib"}
}

// jreArch is the architecture directory name used by pre-9 JREs.
func jreArch() string {
	if runtime.GOARCH == "arm64" {
		return "aarch64"
	}
	return runtime.GOARCH
}

// debArch is the Debian multiarch suffix of OpenJDK package directories.
func debArch() string {
	return runtime.GOARCH
}

//go:build !windows && (amd64 || arm64)

package jni

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/droidusb/internal/platform"
	"github.com/pkg/errors"
)

// ErrLibraryNotFound is returned when no library exporting the JNI
// invocation API can be found.
var ErrLibraryNotFound = errors.New("jni: Java runtime library not found")

// ErrNoVM is returned by CreatedVM when the process hosts no VM.
var ErrNoVM = errors.New("jni: no Java VM has been created in this process")

// ErrNotSupported is returned when the loaded runtime lacks an entry point.
var ErrNotSupported = errors.New("jni: entry point not exported by the Java runtime")

var (
	libRuntime  uintptr
	runtimePath string
	loaded      bool
	loadMu      sync.Mutex

	// Invocation API bindings. Nil when the runtime does not export them.
	jniGetCreatedJavaVMs func(vms *uintptr, bufLen int32, nVMs *int32) int32
	jniCreateJavaVM      func(pvm *uintptr, penv *uintptr, args unsafe.Pointer) int32
)

// IsLoaded reports whether a Java runtime library has been loaded.
func IsLoaded() bool {
	loadMu.Lock()
	defer loadMu.Unlock()
	return loaded
}

// RuntimePath returns the path of the loaded runtime library, or "".
func RuntimePath() string {
	loadMu.Lock()
	defer loadMu.Unlock()
	return runtimePath
}

// Load loads the Java runtime library and binds the invocation API.
// If path is empty the platform's runtime libraries are searched for.
// It is safe to call multiple times; once a library is loaded further calls
// are no-ops.
func Load(path string) error {
	loadMu.Lock()
	defer loadMu.Unlock()

	if loaded {
		return nil
	}

	var err error
	if path == "" {
		path, err = FindRuntime()
		if err != nil {
			return err
		}
	}

	lib, err := tryOpen(path)
	if err != nil {
		return errors.Wrapf(err, "jni: loading %s", path)
	}

	if sym, err := purego.Dlsym(lib, "JNI_GetCreatedJavaVMs"); err == nil {
		purego.RegisterFunc(&jniGetCreatedJavaVMs, sym)
	}
	if sym, err := purego.Dlsym(lib, "JNI_CreateJavaVM"); err == nil {
		purego.RegisterFunc(&jniCreateJavaVM, sym)
	}
	if jniGetCreatedJavaVMs == nil && jniCreateJavaVM == nil {
		purego.Dlclose(lib)
		return errors.Wrapf(ErrNotSupported, "jni: %s exports no invocation API", path)
	}

	libRuntime = lib
	runtimePath = path
	loaded = true
	return nil
}

// tryOpen attempts to open a library with RTLD_NOW | RTLD_GLOBAL.
func tryOpen(path string) (uintptr, error) {
	lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return 0, err
	}
	return lib, nil
}

// FindRuntime searches for a library exporting the invocation API and
// returns its full path, or just its file name on Android where the linker
// namespace resolves system libraries by name.
func FindRuntime() (string, error) {
	paths := platform.SearchPaths(os.Getenv("JAVA_HOME"))
	for _, name := range platform.RuntimeLibraries() {
		libName := platform.FormatLibraryName(name)
		for _, dir := range paths {
			fullPath := filepath.Join(dir, libName)
			if _, err := os.Stat(fullPath); err == nil {
				return fullPath, nil
			}
		}
	}
	if platform.IsAndroid() {
		// Let the linker find it.
		for _, name := range platform.RuntimeLibraries() {
			libName := platform.FormatLibraryName(name)
			if lib, err := tryOpen(libName); err == nil {
				purego.Dlclose(lib)
				return libName, nil
			}
		}
	}
	return "", errors.Wrapf(ErrLibraryNotFound, "searched %d directories", len(paths))
}

// CreatedVM returns the VM already running in this process, which is the
// normal case on Android where the app process hosts ART.
func CreatedVM() (VM, error) {
	if err := Load(""); err != nil {
		return nil, err
	}
	if jniGetCreatedJavaVMs == nil {
		return nil, errors.Wrap(ErrNotSupported, "JNI_GetCreatedJavaVMs")
	}

	var vm uintptr
	var n int32
	if err := StatusErr("JNI_GetCreatedJavaVMs", jniGetCreatedJavaVMs(&vm, 1, &n)); err != nil {
		return nil, err
	}
	if n == 0 || vm == 0 {
		return nil, errors.WithStack(ErrNoVM)
	}
	return WrapVM(vm)
}

// javaVMOption mirrors JavaVMOption.
type javaVMOption struct {
	optionString *byte
	extraInfo    unsafe.Pointer
}

// javaVMInitArgs mirrors JavaVMInitArgs.
type javaVMInitArgs struct {
	version            int32
	nOptions           int32
	options            *javaVMOption
	ignoreUnrecognized uint8
}

// CreateVM starts a Java VM in this process with the given options
// (for example "-Djava.class.path=helper.jar" or "-Xrs"). The calling thread
// is attached to the new VM. Only one VM can exist per process.
func CreateVM(options ...string) (VM, error) {
	if err := Load(""); err != nil {
		return nil, err
	}
	if jniCreateJavaVM == nil {
		return nil, errors.Wrap(ErrNotSupported, "JNI_CreateJavaVM")
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()

	args := &javaVMInitArgs{version: Version1_6}
	if len(options) > 0 {
		opts := make([]javaVMOption, len(options))
		for i, o := range options {
			b := cString(o)
			pinner.Pin(&b[0])
			opts[i].optionString = &b[0]
		}
		pinner.Pin(&opts[0])
		args.nOptions = int32(len(opts))
		args.options = &opts[0]
	}
	pinner.Pin(args)

	var vm, env uintptr
	if err := StatusErr("JNI_CreateJavaVM", jniCreateJavaVM(&vm, &env, unsafe.Pointer(args))); err != nil {
		return nil, err
	}
	return WrapVM(vm)
}

package droidusb

import (
	"github.com/obinnaokechukwu/droidusb/jni"
)

// symbolTable holds the global class references and method IDs resolved at
// load. Method IDs stay valid as long as their class is referenced.
type symbolTable struct {
	throwable jni.Class
	describe  jni.MethodID

	connection     jni.Class
	fileDescriptor jni.MethodID
	close          jni.MethodID

	opener jni.Class
	open   jni.MethodID
}

// resolveSymbols fills b.sym and returns what could not be resolved.
// Every lookup is attempted so the returned list is complete.
func (b *Bridge) resolveSymbols(env jni.Env) []string {
	cfg := &b.cfg
	s := &b.sym

	s.throwable = globalClass(env, cfg.ThrowableClass)
	if s.throwable == 0 {
		env.FatalError("Couldn't find " + cfg.ThrowableClass + "!")
		return []string{cfg.ThrowableClass}
	}
	s.describe = env.GetMethodID(s.throwable, cfg.Describe.Name, cfg.Describe.Signature)
	if s.describe == 0 {
		env.FatalError("Couldn't find " + cfg.ThrowableClass + "." + cfg.Describe.Name + "()!")
		return []string{cfg.ThrowableClass + "." + cfg.Describe.String()}
	}

	var missing []string
	s.connection = b.resolveClass(env, cfg.ConnectionClass, &missing)
	s.fileDescriptor = b.resolveMethod(env, s.connection, cfg.ConnectionClass, cfg.FileDescriptor, false, &missing)
	s.close = b.resolveMethod(env, s.connection, cfg.ConnectionClass, cfg.Close, false, &missing)
	s.opener = b.resolveClass(env, cfg.OpenerClass, &missing)
	s.open = b.resolveMethod(env, s.opener, cfg.OpenerClass, cfg.Open, true, &missing)
	return missing
}

// globalClass finds a class and promotes it to a global reference.
// Returns 0, possibly with an exception pending, if it cannot.
func globalClass(env jni.Env, name string) jni.Class {
	local := env.FindClass(name)
	if local == 0 {
		return 0
	}
	global := env.NewGlobalRef(jni.Object(local))
	env.DeleteLocalRef(jni.Object(local))
	return jni.Class(global)
}

func (b *Bridge) resolveClass(env jni.Env, name string, missing *[]string) jni.Class {
	cls := globalClass(env, name)
	if cls == 0 {
		b.checkException(env, "Load")
		*missing = append(*missing, name)
	}
	return cls
}

func (b *Bridge) resolveMethod(env jni.Env, cls jni.Class, className string, m Member, static bool, missing *[]string) jni.MethodID {
	if cls == 0 {
		*missing = append(*missing, className+"."+m.String())
		return 0
	}
	var id jni.MethodID
	if static {
		id = env.GetStaticMethodID(cls, m.Name, m.Signature)
	} else {
		id = env.GetMethodID(cls, m.Name, m.Signature)
	}
	if id == 0 {
		b.checkException(env, "Load")
		*missing = append(*missing, className+"."+m.String())
	}
	return id
}

func (s *symbolTable) holdsRefs() bool {
	return s.throwable != 0 || s.connection != 0 || s.opener != 0
}

// release deletes every class reference that was acquired.
func (s *symbolTable) release(env jni.Env) {
	for _, cls := range []*jni.Class{&s.throwable, &s.connection, &s.opener} {
		if *cls != 0 {
			env.DeleteGlobalRef(jni.Object(*cls))
			*cls = 0
		}
	}
	s.describe, s.fileDescriptor, s.close, s.open = 0, 0, 0, 0
}

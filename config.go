package droidusb

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Member names a Java method and its JNI type signature.
type Member struct {
	Name      string `yaml:"name"`
	Signature string `yaml:"signature"`
}

func (m Member) String() string {
	return m.Name + m.Signature
}

// Config selects the Java classes and methods the bridge binds to.
// Class names use JNI form ("org/libusb/UsbHelper"); dotted names are
// accepted from YAML and converted.
type Config struct {
	// ThrowableClass and Describe are used to report every other failure.
	ThrowableClass string `yaml:"throwable_class"`
	Describe       Member `yaml:"describe"`

	// ConnectionClass is the type returned by Open.
	ConnectionClass string `yaml:"connection_class"`
	FileDescriptor  Member `yaml:"file_descriptor"`
	Close           Member `yaml:"close"`

	// OpenerClass declares the static Open method.
	OpenerClass string `yaml:"opener_class"`
	Open        Member `yaml:"open"`

	// LogLevel is the most verbose level passed to the log callback.
	LogLevel LogLevel `yaml:"log_level"`
}

// DefaultConfig returns the configuration for libusb's Android helper.
func DefaultConfig() Config {
	return Config{
		ThrowableClass:  "java/lang/Throwable",
		Describe:        Member{Name: "toString", Signature: describeSignature},
		ConnectionClass: "android/hardware/usb/UsbDeviceConnection",
		FileDescriptor:  Member{Name: "getFileDescriptor", Signature: "()I"},
		Close:           Member{Name: "close", Signature: "()V"},
		OpenerClass:     "org/libusb/UsbHelper",
		Open:            Member{Name: "openDevice", Signature: "(Ljava/lang/String;)Landroid/hardware/usb/UsbDeviceConnection;"},
		LogLevel:        LogWarning,
	}
}

// ParseConfig parses YAML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) normalize() {
	for _, s := range []*string{&c.ThrowableClass, &c.ConnectionClass, &c.OpenerClass} {
		*s = strings.ReplaceAll(strings.TrimSpace(*s), ".", "/")
	}
}

// Validate checks that every class and member is named and that each
// signature has the shape its call site uses.
func (c Config) Validate() error {
	var errs []error
	classes := []struct {
		field, name string
	}{
		{"throwable_class", c.ThrowableClass},
		{"connection_class", c.ConnectionClass},
		{"opener_class", c.OpenerClass},
	}
	for _, cl := range classes {
		if cl.name == "" {
			errs = append(errs, fmt.Errorf("%s is empty", cl.field))
		} else if strings.IndexByte(cl.name, 0) >= 0 {
			errs = append(errs, fmt.Errorf("%s contains a NUL byte", cl.field))
		}
	}
	// Each member is called through a fixed JNI call variant with fixed
	// arguments, so its signature must match exactly.
	members := []struct {
		field string
		m     Member
		want  string
		ok    func(string) bool
	}{
		{"describe", c.Describe, describeSignature, exactly(describeSignature)},
		{"file_descriptor", c.FileDescriptor, "()I", exactly("()I")},
		{"close", c.Close, "()V", exactly("()V")},
		{"open", c.Open, "(Ljava/lang/String;)L<class>;", isOpenSignature},
	}
	for _, mb := range members {
		if mb.m.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is empty", mb.field))
		} else if strings.IndexByte(mb.m.Name, 0) >= 0 {
			errs = append(errs, fmt.Errorf("%s.name contains a NUL byte", mb.field))
		}
		if !mb.ok(mb.m.Signature) {
			errs = append(errs, fmt.Errorf("%s.signature %q must be %s", mb.field, mb.m.Signature, mb.want))
		}
	}
	if c.LogLevel < LogNone || c.LogLevel > LogDebug {
		errs = append(errs, fmt.Errorf("log_level %d out of range", c.LogLevel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

const describeSignature = "()Ljava/lang/String;"

func exactly(want string) func(string) bool {
	return func(sig string) bool { return sig == want }
}

// isOpenSignature accepts a static method taking one String and returning
// an object: (Ljava/lang/String;)L<class>;
func isOpenSignature(sig string) bool {
	ret, ok := strings.CutPrefix(sig, "(Ljava/lang/String;)L")
	if !ok || !strings.HasSuffix(ret, ";") {
		return false
	}
	class := strings.TrimSuffix(ret, ";")
	return class != "" && !strings.ContainsAny(class, ";()[")
}

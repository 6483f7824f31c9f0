//go:build !windows && (amd64 || arm64)

// droidusb opens USB devices through a Java helper class, the way libusb
// does on Android, from a standalone Java VM. It is mostly useful for
// trying out helper implementations and bridge configurations.
//
// Usage:
//
//	droidusb open --classpath helper.jar /dev/bus/usb/001/002
//	droidusb config > droidusb.yaml
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/obinnaokechukwu/droidusb"
	"github.com/obinnaokechukwu/droidusb/jni"
)

type options struct {
	configPath string
	logLevel   string
	logJSON    bool

	runtime   string
	classpath string
	vmOptions []string
}

func main() {
	var opts options

	root := &cobra.Command{
		Use:           "droidusb",
		Short:         "Open USB devices through a Java helper",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML bridge configuration")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "none, error, warning, info or debug (overrides the config)")
	root.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "log JSON even on a terminal")

	open := &cobra.Command{
		Use:   "open [flags] <device-path>...",
		Short: "Open each device, report its descriptor and close it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(&opts, args)
		},
	}
	open.Flags().StringVar(&opts.runtime, "jvm", "", "path to libjvm (default: search JAVA_HOME and system paths)")
	open.Flags().StringVar(&opts.classpath, "classpath", "", "class path holding the helper class")
	open.Flags().StringArrayVarP(&opts.vmOptions, "jvm-option", "J", nil, "extra Java VM option (repeatable)")

	config := &cobra.Command{
		Use:   "config",
		Short: "Print the effective bridge configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(&opts)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}

	root.AddCommand(open, config)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "droidusb:", err)
		os.Exit(1)
	}
}

func loadConfig(opts *options) (droidusb.Config, error) {
	cfg := droidusb.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = droidusb.LoadConfig(opts.configPath); err != nil {
			return cfg, err
		}
	}
	if opts.logLevel != "" {
		lvl, err := droidusb.ParseLogLevel(opts.logLevel)
		if err != nil {
			return cfg, err
		}
		cfg.LogLevel = lvl
	}
	return cfg, nil
}

func newLogger(level droidusb.LogLevel, json bool) (*zap.Logger, error) {
	var zc zap.Config
	if json || !term.IsTerminal(int(os.Stderr.Fd())) {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(zapLevel(level))
	return zc.Build()
}

func zapLevel(l droidusb.LogLevel) zapcore.Level {
	switch l {
	case droidusb.LogDebug:
		return zapcore.DebugLevel
	case droidusb.LogInfo:
		return zapcore.InfoLevel
	case droidusb.LogWarning:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// startVM returns the process's Java VM, creating one if needed. destroy
// is non-nil when the VM was created here.
func startVM(opts *options) (vm jni.VM, destroy func() error, err error) {
	if err := jni.Load(opts.runtime); err != nil {
		return nil, nil, err
	}
	if vm, err := jni.CreatedVM(); err == nil {
		return vm, nil, nil
	}

	// -Xrs keeps the VM's signal handlers out of the Go runtime's way.
	vmOpts := []string{"-Xrs"}
	if opts.classpath != "" {
		vmOpts = append(vmOpts, "-Djava.class.path="+opts.classpath)
	}
	vmOpts = append(vmOpts, opts.vmOptions...)

	vm, err = jni.CreateVM(vmOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("starting Java VM (%s): %w", strings.Join(vmOpts, " "), err)
	}
	if d, ok := vm.(jni.Destroyer); ok {
		destroy = d.Destroy
	}
	return vm, destroy, nil
}

func runOpen(opts *options, paths []string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel, opts.logJSON)
	if err != nil {
		return err
	}
	defer logger.Sync()

	vm, destroy, err := startVM(opts)
	if err != nil {
		return err
	}
	if destroy != nil {
		defer func() {
			if err := destroy(); err != nil {
				logger.Warn("destroying Java VM", zap.Error(err))
			}
		}()
	}
	logger.Debug("Java VM ready", zap.String("runtime", jni.RuntimePath()))

	bridge, err := droidusb.Load(vm,
		droidusb.WithConfig(cfg),
		droidusb.WithLogger(droidusb.ZapLogger(logger)))
	if err != nil {
		bridge.Unload()
		return err
	}

	failed := 0
	for _, path := range paths {
		if err := openOne(os.Stdout, bridge, path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
		}
	}

	bridge.Unload()
	if failed > 0 {
		return fmt.Errorf("%d of %d devices failed", failed, len(paths))
	}
	return nil
}

// openOne opens path, reports its descriptor and device number to w and
// closes it again.
func openOne(w io.Writer, bridge *droidusb.Bridge, path string) error {
	fd, conn, err := bridge.Open(path)
	if err != nil {
		return err
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		conn.Close()
		return fmt.Errorf("fstat descriptor %d: %w", fd, err)
	}
	rdev := uint64(st.Rdev)
	fmt.Fprintf(w, "%s\tfd=%d\tdev=%d:%d\n", path, fd, unix.Major(rdev), unix.Minor(rdev))
	return conn.Close()
}

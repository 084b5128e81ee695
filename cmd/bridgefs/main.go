package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/zindlerb/bridgefs/pkg/config"
	"github.com/zindlerb/bridgefs/pkg/dispatcher"
	"github.com/zindlerb/bridgefs/pkg/loop"
	"github.com/zindlerb/bridgefs/pkg/memfs"
	"github.com/zindlerb/bridgefs/pkg/passthrough"
	"github.com/zindlerb/bridgefs/pkg/s3fs"
	"github.com/zindlerb/bridgefs/pkg/vfs"
)

var (
	cfgFile     string
	backendName string
	prefix      string
	rootDir     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bridgefs",
		Short: "Blocking POSIX file API over an asynchronous storage backend",
		Long: `bridgefs routes POSIX file calls by path prefix: calls under the
configured prefix are bridged onto an event loop and served by an
asynchronous backend (in-memory or S3), everything else goes to the
host filesystem.

The demo workload exercises the shim end to end: a write/read round
trip, concurrent appenders, a directory listing and a cross-backend
rename rejection.`,
		RunE: run,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "Configuration file (YAML)")
	rootCmd.Flags().StringVar(&backendName, "backend", "", "Backend: mem or s3")
	rootCmd.Flags().StringVar(&prefix, "prefix", "", "Path prefix routed to the backend")
	rootCmd.Flags().StringVar(&rootDir, "root", "", "Root directory of the fallback filesystem")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: slog.LevelDebug,
	})))

	conf := config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		conf = loaded
	}
	if cmd.Flags().Changed("backend") {
		conf.Backend = backendName
	}
	if cmd.Flags().Changed("prefix") {
		conf.Prefix = prefix
	}
	if cmd.Flags().Changed("root") {
		conf.Root = rootDir
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	l := loop.Start()
	defer l.Close()

	var backend vfs.AsyncFS
	switch conf.Backend {
	case "mem":
		backend = memfs.New(l, conf.Prefix, conf.FDBase)
	case "s3":
		var opts []func(*awsconfig.LoadOptions) error
		if conf.S3.Region != "" {
			opts = append(opts, awsconfig.WithRegion(conf.S3.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
		if err != nil {
			return fmt.Errorf("loading AWS config: %w", err)
		}
		backend = s3fs.New(l, s3.NewFromConfig(awsCfg), conf.S3.Bucket, conf.S3.Prefix, conf.FDBase)
	}

	d := dispatcher.New(l, backend, passthrough.New(conf.Root), conf.Prefix)
	defer d.Close()

	return demo(d, conf.Prefix)
}

func demo(d *dispatcher.Dispatcher, prefix string) error {
	log := slog.Default()

	// Round trip through the backend.
	example := prefix + "/example"
	payload := []byte("Writing a few characters.\n")
	if err := writeFile(d, example, payload); err != nil {
		return err
	}
	got, err := readFile(d, example)
	if err != nil {
		return err
	}
	if string(got) != string(payload) {
		return fmt.Errorf("round trip mismatch: wrote %q, read %q", payload, got)
	}
	log.Info("round trip ok", "path", example, "bytes", len(got))

	// Concurrent appenders on one backend file.
	multi := prefix + "/multi"
	if err := appendLine(d, multi, "Writing from the main thread\n"); err != nil {
		return err
	}
	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = appendLine(d, multi, fmt.Sprintf("Writing from thread %d\n", i))
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	log.Info("concurrent appenders ok", "path", multi, "writers", 10)

	// Directory listing through getdents.
	names, err := listDir(d, prefix)
	if err != nil {
		return err
	}
	log.Info("directory listing", "path", prefix, "entries", names)

	// Cross-backend rename is refused.
	if _, errno := d.Rename(example, "example-moved"); errno != vfs.EXDEV {
		return fmt.Errorf("cross-backend rename: want EXDEV, got %v", errno)
	}
	log.Info("cross-backend rename refused with EXDEV")

	return nil
}

func writeFile(d *dispatcher.Dispatcher, path string, data []byte) error {
	fd, errno := d.Open(path, vfs.O_WRONLY|vfs.O_CREAT|vfs.O_TRUNC, 0o644)
	if errno != vfs.ESUCCESS {
		return fmt.Errorf("open %s: %w", path, errno)
	}
	if _, errno := d.Write(fd, data); errno != vfs.ESUCCESS {
		return fmt.Errorf("write %s: %w", path, errno)
	}
	if _, errno := d.Close(fd); errno != vfs.ESUCCESS {
		return fmt.Errorf("close %s: %w", path, errno)
	}
	return nil
}

func appendLine(d *dispatcher.Dispatcher, path, line string) error {
	fd, errno := d.Open(path, vfs.O_WRONLY|vfs.O_CREAT|vfs.O_APPEND, 0o644)
	if errno != vfs.ESUCCESS {
		return fmt.Errorf("open %s: %w", path, errno)
	}
	if _, errno := d.Write(fd, []byte(line)); errno != vfs.ESUCCESS {
		return fmt.Errorf("append %s: %w", path, errno)
	}
	if _, errno := d.Close(fd); errno != vfs.ESUCCESS {
		return fmt.Errorf("close %s: %w", path, errno)
	}
	return nil
}

func readFile(d *dispatcher.Dispatcher, path string) ([]byte, error) {
	fd, errno := d.Open(path, vfs.O_RDONLY, 0)
	if errno != vfs.ESUCCESS {
		return nil, fmt.Errorf("open %s: %w", path, errno)
	}
	defer d.Close(fd)

	var out []byte
	buf := make([]byte, 4096)
	for {
		n, errno := d.Read(fd, buf)
		if errno != vfs.ESUCCESS {
			return nil, fmt.Errorf("read %s: %w", path, errno)
		}
		if n == 0 {
			return out, nil
		}
		out = append(out, buf[:n]...)
	}
}

func listDir(d *dispatcher.Dispatcher, path string) ([]string, error) {
	fd, errno := d.Open(path, vfs.O_RDONLY, 0)
	if errno != vfs.ESUCCESS {
		return nil, fmt.Errorf("open %s: %w", path, errno)
	}
	defer d.Close(fd)

	var names []string
	buf := make([]byte, 4096)
	for {
		n, errno := d.Getdents(fd, buf)
		if errno != vfs.ESUCCESS {
			return nil, fmt.Errorf("getdents %s: %w", path, errno)
		}
		if n == 0 {
			return names, nil
		}
		for _, ent := range vfs.ParseDirents(buf, int(n)) {
			names = append(names, ent.Name)
		}
	}
}

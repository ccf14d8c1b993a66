package config

import (
	"flag"
	"os"

	"github.com/dsmirnov/filedrop/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":5000")
//	-d string   PostgreSQL DSN
//	-l string   log format (json, console)
//	-ul int     daily upload limit, MB
//	-dl int     daily download limit, MB
//	-sb string  storage backend (local, s3)
//	-f string   storage folder for the local backend
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-a", "-d", "-l", "-ul", "-dl", "-sb", "-f", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format")

	fs.Int64Var(&config.UploadLimitMB, "ul", config.UploadLimitMB, "daily upload limit (MB)")
	fs.Int64Var(&config.DownloadLimitMB, "dl", config.DownloadLimitMB, "daily download limit (MB)")

	fs.StringVar(&config.StorageBackend, "sb", config.StorageBackend, "storage backend")
	fs.StringVar(&config.StorageFolder, "f", config.StorageFolder, "storage folder")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

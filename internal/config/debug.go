package config

import "os"

func IsDebug() bool {
	return os.Getenv("STRIDE_DEBUG") == "1" || os.Getenv("STRIDE_DEBUG") == "true"
}

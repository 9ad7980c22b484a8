package providers

import (
	"runtime"

	"github.com/nvr-ai/go-vision/errdefs"
)

// SharedLibPath returns the path to the ONNX Runtime shared library for the current platform, or
// override when set.
//
// Returns:
//   - string: The path to the shared library.
//   - error: ErrConfig when no default exists for this platform.
func SharedLibPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return defaultSharedLibPath(runtime.GOOS, runtime.GOARCH)
}

func defaultSharedLibPath(goos, goarch string) (string, error) {
	switch goos {
	case "windows":
		if goarch == "amd64" {
			return "./third_party/onnxruntime.dll", nil
		}
	case "darwin":
		return "./third_party/libonnxruntime.dylib", nil
	case "linux":
		if goarch == "arm64" {
			return "./third_party/onnxruntime_arm64.so", nil
		}
		return "./third_party/onnxruntime.so", nil
	}
	return "", errdefs.Config("no onnxruntime library known for %s/%s", goos, goarch)
}

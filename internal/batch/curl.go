package batch

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// execCUrl shells out to the curl binary, mirroring the retry/timeout
// flags a CUrl command exposes rather than reimplementing HTTP fetching
// (the binary already gets proxying, redirects and TLS config right).
func execCUrl(c CUrl) error {
	curlPath := c.CurlPath
	if curlPath == "" {
		curlPath = "curl"
	}

	args := []string{"-fsSL", "-o", c.Trg}
	if c.ConnectTimeout > 0 {
		args = append(args, "--connect-timeout", strconv.Itoa(c.ConnectTimeout))
	}
	if c.MaxTime > 0 {
		args = append(args, "--max-time", strconv.Itoa(c.MaxTime))
	}
	if c.Retries > 0 {
		args = append(args, "--retry", strconv.Itoa(c.Retries))
	}
	if c.RetryDelaySec > 0 {
		args = append(args, "--retry-delay", strconv.Itoa(c.RetryDelaySec))
	}
	args = append(args, c.Src)

	cmd := exec.Command(curlPath, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("CUrl %s: %w", c.Src, err)
	}
	return nil
}

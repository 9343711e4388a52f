//go:build !ci

package jsblock_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	goruntime "runtime"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const (
	dockerImage           = "chromedp/headless-shell:stable"
	chromeContainerPrefix = "chrome-e2e-jsblock-"
)

// setupDockerChrome starts a headless Chrome container and returns a
// chromedp context bound to it. The test is skipped without Docker.
func setupDockerChrome(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()

	if _, err := exec.Command("docker", "version").CombinedOutput(); err != nil {
		t.Skip("Docker not available, skipping E2E test")
	}

	port, err := freePort()
	if err != nil {
		t.Fatalf("Failed to allocate Chrome port: %v", err)
	}
	if err := startDockerChrome(t, port); err != nil {
		t.Fatalf("Failed to start Docker Chrome: %v", err)
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), fmt.Sprintf("http://localhost:%d", port))
	ctx, ctxCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(t.Logf))
	ctx, timeoutCancel := context.WithTimeout(ctx, timeout)

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			args := make([]string, len(ev.Args))
			for i, arg := range ev.Args {
				args[i] = string(arg.Value)
			}
			t.Logf("[Browser Console] %s: %s", ev.Type, strings.Join(args, " "))
		case *runtime.EventExceptionThrown:
			t.Logf("[Browser Error] %s", ev.ExceptionDetails.Text)
		}
	})

	t.Cleanup(func() {
		timeoutCancel()
		ctxCancel()
		allocCancel()
		removeContainer(fmt.Sprintf("%s%d", chromeContainerPrefix, port))
	})
	return ctx
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func startDockerChrome(t *testing.T, debugPort int) error {
	t.Helper()

	name := fmt.Sprintf("%s%d", chromeContainerPrefix, debugPort)
	removeContainer(name)

	if _, err := exec.Command("docker", "image", "inspect", dockerImage).CombinedOutput(); err != nil {
		t.Log("Pulling chromedp/headless-shell Docker image...")
		pullCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if output, err := exec.CommandContext(pullCtx, "docker", "pull", dockerImage).CombinedOutput(); err != nil {
			return fmt.Errorf("failed to pull %s: %w\n%s", dockerImage, err, output)
		}
	}

	// Linux shares the host network; elsewhere Docker runs in a VM and
	// needs the debug port mapped.
	args := []string{"run", "-d", "--rm", "--memory", "512m", "--name", name}
	if goruntime.GOOS == "linux" {
		args = append(args, "--network", "host", dockerImage, fmt.Sprintf("--remote-debugging-port=%d", debugPort))
	} else {
		args = append(args, "-p", fmt.Sprintf("%d:9222", debugPort), dockerImage)
	}
	if _, err := exec.Command("docker", args...).Output(); err != nil {
		return fmt.Errorf("failed to start Chrome Docker container: %w", err)
	}

	client := &http.Client{Timeout: 2 * time.Second}
	versionURL := fmt.Sprintf("http://localhost:%d/json/version", debugPort)
	var lastErr error
	for i := 0; i < 120; i++ {
		resp, err := client.Get(versionURL)
		if err == nil {
			resp.Body.Close()
			return nil
		}
		lastErr = err
		time.Sleep(500 * time.Millisecond)
	}
	removeContainer(name)
	return fmt.Errorf("Chrome failed to start within 60 seconds: %w", lastErr)
}

func removeContainer(name string) {
	exec.Command("docker", "rm", "-f", name).CombinedOutput()
}

// chromeURL rewrites an httptest URL so Chrome inside Docker can reach it.
func chromeURL(httptestURL string) string {
	host := "localhost"
	if goruntime.GOOS != "linux" {
		host = "host.docker.internal"
	}
	url := strings.Replace(httptestURL, "127.0.0.1", host, 1)
	return strings.Replace(url, "[::1]", host, 1)
}

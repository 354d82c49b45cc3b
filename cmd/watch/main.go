package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

var (
	serverProcess   *exec.Cmd
	restartDebounce = make(chan bool, 1)
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/watch/main.go <command> [args...]")
		fmt.Println("Example: go run cmd/watch/main.go cmd/server/main.go")
		os.Exit(1)
	}

	command := os.Args[1:]

	go handleRestart(command)

	startServer(command)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatal("failed to create watcher:", err)
	}
	defer watcher.Close()

	err = filepath.Walk(".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			name := filepath.Base(path)
			if name == ".git" || name == "bin" || name == "node_modules" || name == "coverage.html" {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})

	if err != nil {
		log.Fatal("failed to add paths to watcher:", err)
	}

	fmt.Println("file watcher started")
	fmt.Println("watching for changes in Go files")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if !strings.HasSuffix(event.Name, ".go") {
				continue
			}

			if event.Has(fsnotify.Chmod) {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				fmt.Printf("file changed: %s\n", event.Name)
				triggerRestart()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watcher error: %v\n", err)
		}
	}
}

func triggerRestart() {
	select {
	case restartDebounce <- true:
	default:
	}
}

func handleRestart(command []string) {
	for range restartDebounce {
		time.Sleep(300 * time.Millisecond)

		for {
			select {
			case <-restartDebounce:
				continue
			default:
				goto restart
			}
		}

	restart:
		stopServer()
		startServer(command)
	}
}

func startServer(command []string) {
	fmt.Println("starting server")

	if len(command) == 1 {
		serverProcess = exec.Command("go", "run", command[0])
	} else {
		args := append([]string{"run"}, command...)
		serverProcess = exec.Command("go", args...)
	}

	serverProcess.Stdout = os.Stdout
	serverProcess.Stderr = os.Stderr

	err := serverProcess.Start()
	if err != nil {
		log.Printf("failed to start server: %v\n", err)
		return
	}

	fmt.Printf("server started (PID: %d)\n", serverProcess.Process.Pid)
}

func stopServer() {
	if serverProcess != nil && serverProcess.Process != nil {
		fmt.Printf("stopping server (PID: %d)\n", serverProcess.Process.Pid)

		serverProcess.Process.Signal(os.Interrupt)

		done := make(chan error, 1)
		go func() {
			done <- serverProcess.Wait()
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			fmt.Println("graceful shutdown timeout, force killing")
			serverProcess.Process.Kill()
			<-done
		}

		serverProcess = nil
	}
}

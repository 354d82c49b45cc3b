package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultServerAddr = "localhost:8080"
	cliVersion         = "1.0.0"
	cliName            = "simcore debug viewer"
)

// stepFrame/stepResult mirror wsstream.StepFrame/StepResult wire shapes.
// Duplicated here (not imported) so the CLI stays a pure HTTP/websocket
// client, the way the teacher's cmd/cli never imports internal/delivery
// server types either.
type stepFrame struct {
	Actions     []int32 `json:"actions"`
	VibeActions []int32 `json:"vibeActions"`
}

type stepResult struct {
	Step        int       `json:"step"`
	Rewards     []float32 `json:"rewards"`
	Terminals   []bool    `json:"terminals"`
	Truncations []bool    `json:"truncations"`
}

// Client drives one episode against a running server, grounded on the
// teacher's CLIClient: an HTTP base for control calls plus a websocket
// connection for the per-tick stream.
type Client struct {
	httpBase  string
	conn      *websocket.Conn
	episodeID string
	done      chan struct{}
	closed    bool
	ui        *UI
}

func main() {
	fmt.Printf("%s v%s\n", cliName, cliVersion)
	fmt.Println("Connects to a running simcore control API and steps one episode with noop actions.")
	fmt.Println()

	serverAddr := defaultServerAddr
	if len(os.Args) > 1 {
		serverAddr = os.Args[1]
	}
	configPath := ""
	if len(os.Args) > 2 {
		configPath = os.Args[2]
	}
	if configPath == "" {
		log.Fatal("usage: cli <server-addr> <config.json>")
	}

	client := &Client{
		httpBase: "http://" + serverAddr + "/api/v1",
		done:     make(chan struct{}),
		ui:       NewUI(),
	}

	episodeID, err := client.createEpisode(configPath)
	if err != nil {
		log.Fatalf("failed to create episode: %v", err)
	}
	client.episodeID = episodeID
	fmt.Printf("episode created: %s\n", episodeID)

	if err := client.connectStream(serverAddr); err != nil {
		log.Fatalf("failed to connect stream: %v", err)
	}
	defer client.conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-interrupt
		fmt.Println("\nshutting down")
		if !client.closed {
			client.closed = true
			close(client.done)
		}
		client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(200 * time.Millisecond)
		os.Exit(0)
	}()

	client.stepLoop()
}

func (c *Client) createEpisode(configPath string) (string, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config: %w", err)
	}
	buf, err := json.Marshal(struct {
		Config json.RawMessage `json:"config"`
		Seed   int64           `json:"seed"`
	}{Config: raw, Seed: 1})
	if err != nil {
		return "", err
	}

	resp, err := http.Post(c.httpBase+"/episodes", "application/json", bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("post episode: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("create episode: %s: %s", resp.Status, string(msg))
	}

	var created struct {
		EpisodeID string `json:"episode_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	return created.EpisodeID, nil
}

func (c *Client) connectStream(serverAddr string) error {
	u := url.URL{Scheme: "ws", Host: serverAddr, Path: "/api/v1/episodes/" + c.episodeID + "/stream"}
	var err error
	c.conn, _, err = websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial error: %w", err)
	}
	return nil
}

// stepLoop sends noop actions every tick and renders the returned rewards,
// the simplest possible controller — enough to exercise the stream and
// verify an episode runs, not a real policy.
func (c *Client) stepLoop() {
	stats, err := c.fetchNumAgents()
	if err != nil {
		log.Fatalf("fetch stats: %v", err)
	}

	for {
		select {
		case <-c.done:
			return
		default:
		}

		frame := stepFrame{
			Actions:     make([]int32, stats),
			VibeActions: make([]int32, stats),
		}
		if err := c.conn.WriteJSON(frame); err != nil {
			fmt.Println(c.ui.RenderMessage("error", "write error: "+err.Error()))
			return
		}

		var result stepResult
		if err := c.conn.ReadJSON(&result); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Println(c.ui.RenderMessage("error", "read error: "+err.Error()))
			}
			return
		}

		c.ui.ClearScreen()
		fmt.Println(c.ui.RenderHeader(c.episodeID, result.Step))
		views := make([]AgentStatsView, len(result.Rewards))
		for i := range result.Rewards {
			views[i] = AgentStatsView{
				AgentIndex: i,
				LastReward: result.Rewards[i],
				Alive:      i >= len(result.Terminals) || !result.Terminals[i],
			}
		}
		fmt.Println(c.ui.RenderStats(views))

		allDone := len(result.Terminals) > 0
		for i, t := range result.Terminals {
			if !t && !result.Truncations[i] {
				allDone = false
			}
		}
		if allDone {
			fmt.Println(c.ui.RenderMessage("success", "episode finished"))
			return
		}

		time.Sleep(100 * time.Millisecond)
	}
}

func (c *Client) fetchNumAgents() (int, error) {
	resp, err := http.Get(c.httpBase + "/episodes/" + c.episodeID + "/stats")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	var stats struct {
		AgentStats []struct{} `json:"agent_stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return 0, err
	}
	return len(stats.AgentStats), nil
}

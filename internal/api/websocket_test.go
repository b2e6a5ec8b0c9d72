// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/animerec/internal/recommend/algorithms"
	"github.com/tomtom215/animerec/internal/recommend/training"
	ws "github.com/tomtom215/animerec/internal/websocket"
)

func wsURL(server *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws" + query
}

func TestWebSocket_OriginCheck(t *testing.T) {
	ts := newTestServer(t, serverOptions{withoutDB: true})
	server := httptest.NewServer(ts.router)
	defer server.Close()

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"missing origin", "", false},
		{"foreign origin", "http://evil.example", false},
		{"allowed origin", "http://localhost:3000", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server, ""), header)
			if resp != nil && resp.Body != nil {
				defer resp.Body.Close()
			}
			if tt.ok {
				if err != nil {
					t.Fatalf("Dial() error = %v", err)
				}
				conn.Close()
				return
			}
			if err == nil {
				conn.Close()
				t.Fatal("Dial() succeeded for a rejected origin")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("response = %v, want 403", resp)
			}
		})
	}
}

func TestWebSocket_StreamsProgress(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	server := httptest.NewServer(ts.router)
	defer server.Close()

	header := http.Header{"Origin": []string{"http://localhost:3000"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(server, ""), header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for ts.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	ts.trainAndWait(t, algorithms.NameItemBasedCF)

	_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	last := -1
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() error = %v (last progress %d)", err, last)
		}
		var msg struct {
			Type string       `json:"type"`
			Data training.Job `json:"data"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if msg.Type != ws.MessageTypeJobProgress {
			continue
		}
		if msg.Data.Progress < last {
			t.Fatalf("progress went from %d to %d", last, msg.Data.Progress)
		}
		last = msg.Data.Progress
		if msg.Data.Status == training.StatusCompleted {
			break
		}
	}
	if last != 100 {
		t.Errorf("final progress = %d", last)
	}
}

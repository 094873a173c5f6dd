package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"socialsync/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, time.Second, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "not a url", "/relative"} {
		if _, err := NewClient(raw, 0, nil); err == nil {
			t.Errorf("NewClient(%q) expected error", raw)
		}
	}
}

func TestDoJSON_SetsBearerAndDecodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/posts/p1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_id":"p1","user":{"_id":"u1","name":"Ann"},"content":"hi","likes":[],"comments":[],"isApproved":true}`))
	})

	post, err := client.GetPost(context.Background(), "tok", "p1")
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if post.Author.Name != "Ann" || !post.IsApproved {
		t.Errorf("post = %+v", post)
	}
}

func TestDoJSON_StatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		code     string
		message  string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"Token invalid"}`, model.ErrUnauthorized, "", "Token invalid"},
		{"not found", http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"Post not found"}}`, model.ErrNotFound, "NOT_FOUND", "Post not found"},
		{"banned", http.StatusForbidden, `{"code":"ACCOUNT_BANNED","message":"banned"}`, model.ErrBanned, "ACCOUNT_BANNED", "banned"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.GetPost(context.Background(), "tok", "p1")
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("error = %v, want %v", err, tt.sentinel)
			}
			var reqErr *RequestError
			if !errors.As(err, &reqErr) {
				t.Fatalf("error is not RequestError: %T", err)
			}
			if reqErr.Code != tt.code || reqErr.Message != tt.message {
				t.Errorf("code=%q message=%q", reqErr.Code, reqErr.Message)
			}
			if reqErr.Transport {
				t.Error("status error should not be transport")
			}
		})
	}
}

func TestDoJSON_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewClient(url, time.Second, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Feed(context.Background(), "tok")
	if !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.UserMessage() == "" {
		t.Error("expected user message")
	}
}

func TestGetList_ValidatesRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"_id":"n1","type":"like","sender":"u1"},{"_id":"","type":"like"}]`))
	})

	_, err := client.Notifications(context.Background(), "tok")
	if !errors.Is(err, model.ErrInvalidPayload) {
		t.Fatalf("error = %v, want ErrInvalidPayload", err)
	}
}

func TestGetList_NullBecomesEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})

	posts, err := client.Feed(context.Background(), "tok")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("posts = %v, want empty slice", posts)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not send a bearer token")
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid email or password"}`))
	})

	_, err := client.Login(context.Background(), model.Credentials{Email: "a@b.c", Password: "x"})
	if !errors.Is(err, model.ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}
}

func TestSendMessage_PostsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/messages" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req model.SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		resp := model.Message{
			ID:       "m1",
			ClientID: req.ClientID,
			Sender:   model.UserRef{ID: "me"},
			Receiver: model.UserRef{ID: req.ReceiverID},
			Content:  req.Content,
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	msg, err := client.SendMessage(context.Background(), "tok", model.SendMessageRequest{ReceiverID: "u2", Content: "hi", ClientID: "c1"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ClientID != "c1" || msg.Type != model.MessageTypePlain {
		t.Errorf("message = %+v", msg)
	}
}

func TestListUsers_QueryString(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("gender") != "female" || q.Get("minAge") != "20" || q.Get("online") != "true" {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(`[]`))
	})

	if _, err := client.ListUsers(context.Background(), "tok", DiscoverFilter{Gender: "female", MinAge: 20, OnlineOnly: true}); err != nil {
		t.Fatalf("list users: %v", err)
	}
}

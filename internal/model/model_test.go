package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestUserRef_DecodesIDOrObject(t *testing.T) {
	var post Post
	data := `{"_id":"p1","user":"u1","likes":[{"_id":"u2","name":"Bo"},"u3"],"comments":[]}`
	if err := json.Unmarshal([]byte(data), &post); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if post.Author.ID != "u1" {
		t.Errorf("author = %q, want u1", post.Author.ID)
	}
	if len(post.Likes) != 2 || post.Likes[0].Name != "Bo" || post.Likes[1].ID != "u3" {
		t.Errorf("likes = %+v", post.Likes)
	}
}

func TestPost_VisibleTo(t *testing.T) {
	p := Post{ID: "p1", Author: UserRef{ID: "author"}, IsApproved: false}

	if !p.VisibleTo("author") {
		t.Error("unapproved post should be visible to its author")
	}
	if p.VisibleTo("someone") {
		t.Error("unapproved post should be hidden from other users")
	}

	p.IsApproved = true
	if !p.VisibleTo("someone") {
		t.Error("approved post should be visible to everyone")
	}
}

func TestCreatePostApproval(t *testing.T) {
	if !CreatePostApproval(CreatePostRequest{Content: "hi"}) {
		t.Error("text-only post should start approved")
	}
	if CreatePostApproval(CreatePostRequest{Content: "hi", Image: "https://img/x.jpg"}) {
		t.Error("post with image should wait for approval")
	}
}

func TestMessage_ValidateDefaultsTypeAndTime(t *testing.T) {
	m := Message{
		ID:       "65a000000000000000000000",
		Sender:   UserRef{ID: "a"},
		Receiver: UserRef{ID: "b"},
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if m.Type != MessageTypePlain {
		t.Errorf("type = %q, want %q", m.Type, MessageTypePlain)
	}
	if m.CreatedAt.IsZero() {
		t.Error("expected CreatedAt derived from object id")
	}

	bad := Message{ID: "x", Sender: UserRef{ID: "a"}, Receiver: UserRef{ID: "b"}, Type: "sticker"}
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestConversationKey_Unordered(t *testing.T) {
	if ConversationKey("a", "b") != ConversationKey("b", "a") {
		t.Error("conversation key should not depend on order")
	}
}

func TestValidateRegistration(t *testing.T) {
	ok := RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "secret1", Age: 21}
	if err := ValidateRegistration(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		mod   func(r *RegisterRequest)
		field string
	}{
		{"underage", func(r *RegisterRequest) { r.Age = 17 }, "age"},
		{"short password", func(r *RegisterRequest) { r.Password = "abc" }, "password"},
		{"bad email", func(r *RegisterRequest) { r.Email = "nope" }, "email"},
		{"no name", func(r *RegisterRequest) { r.Name = " " }, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ok
			tt.mod(&req)
			err := ValidateRegistration(req)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}

func TestValidateGallery_Duplicates(t *testing.T) {
	if err := ValidateGallery([]string{"a", "b", ""}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateGallery([]string{"a", "a"}); !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestValidateReport(t *testing.T) {
	good := Report{TargetID: "u1", TargetType: ReportTargetUser, Reason: ReportReasonSpam}
	if err := ValidateReport(good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other := Report{TargetID: "u1", TargetType: ReportTargetUser, Reason: ReportReasonOther}
	if err := ValidateReport(other); err == nil {
		t.Error("expected error for reason other without details")
	}
}

func TestAlbumAccessStatus_Terminal(t *testing.T) {
	if AlbumAccessPending.Terminal() {
		t.Error("pending should not be terminal")
	}
	if !AlbumAccessApproved.Terminal() || !AlbumAccessRejected.Terminal() {
		t.Error("approved and rejected should be terminal")
	}
}

func TestParseID(t *testing.T) {
	oid, err := ParseID(" 64b7f0c2a1b2c3d4e5f60001 ")
	if err != nil {
		t.Fatalf("ParseID: %v", err)
	}
	if oid.Hex() != "64b7f0c2a1b2c3d4e5f60001" {
		t.Fatalf("hex = %s", oid.Hex())
	}
	for _, bad := range []string{"", "bob", "64b7f0c2a1b2c3d4e5f6000z"} {
		if _, err := ParseID(bad); !errors.Is(err, ErrValidation) {
			t.Errorf("ParseID(%q) = %v, want validation error", bad, err)
		}
	}
}

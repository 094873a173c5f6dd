package model

import (
	"net/mail"
	"strings"
)

const (
	MinAge            = 18
	MinPasswordLength = 6
)

// ValidateRegistration runs the checks the registration form does before calling the backend.
func ValidateRegistration(req RegisterRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return invalid("name", "required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return invalid("email", "not a valid address")
	}
	if len(req.Password) < MinPasswordLength {
		return invalid("password", "must be at least 6 characters")
	}
	if req.Age < MinAge {
		return invalid("age", "must be 18 or older")
	}
	return nil
}

// ValidateCredentials rejects empty login forms.
func ValidateCredentials(c Credentials) error {
	if strings.TrimSpace(c.Email) == "" {
		return invalid("email", "required")
	}
	if c.Password == "" {
		return invalid("password", "required")
	}
	return nil
}

// ValidateGallery rejects duplicate slots and galleries above MaxGallerySlots.
func ValidateGallery(urls []string) error {
	if len(urls) > MaxGallerySlots {
		return invalid("gallery", "too many images")
	}
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			return invalid("gallery", "duplicate image")
		}
		seen[u] = struct{}{}
	}
	return nil
}

// ValidateProfileUpdate checks the fields a profile edit sets.
func ValidateProfileUpdate(req UpdateProfileRequest) error {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return invalid("name", "required")
	}
	if req.Age != nil && *req.Age < MinAge {
		return invalid("age", "must be 18 or older")
	}
	if req.Gallery != nil {
		if err := ValidateGallery(req.Gallery); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePost requires text or an image and caps text length.
func ValidatePost(req CreatePostRequest) error {
	if strings.TrimSpace(req.Content) == "" && req.Image == "" {
		return invalid("content", "text or image required")
	}
	if len(req.Content) > MaxPostContentLength {
		return invalid("content", "too long")
	}
	return nil
}

func ValidateComment(req CreateCommentRequest) error {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return invalid("text", "required")
	}
	if len(text) > MaxCommentLength {
		return invalid("text", "too long")
	}
	return nil
}

// ValidateMessage requires a receiver and some content.
func ValidateMessage(req SendMessageRequest) error {
	if req.ReceiverID == "" {
		return invalid("receiverId", "required")
	}
	if strings.TrimSpace(req.Content) == "" && req.Image == "" && (req.Type == "" || req.Type == MessageTypePlain) {
		return invalid("content", "text or image required")
	}
	return nil
}

func ValidateReport(r Report) error {
	if r.TargetID == "" {
		return invalid("reportedId", "required")
	}
	switch r.TargetType {
	case ReportTargetUser, ReportTargetPost, ReportTargetMessage:
	default:
		return invalid("reportedType", "unknown target")
	}
	if _, ok := reportReasons[r.Reason]; !ok {
		return invalid("reason", "unknown reason")
	}
	if r.Reason == ReportReasonOther && strings.TrimSpace(r.Detail) == "" {
		return invalid("details", "required for other")
	}
	return nil
}

package model

// Report target types
const (
	ReportTargetUser    = "user"
	ReportTargetPost    = "post"
	ReportTargetMessage = "message"
)

// Report reasons accepted by the backend
const (
	ReportReasonSpam          = "spam"
	ReportReasonHarassment    = "harassment"
	ReportReasonInappropriate = "inappropriate"
	ReportReasonFakeProfile   = "fake_profile"
	ReportReasonUnderage      = "underage"
	ReportReasonOther         = "other"
)

var reportReasons = map[string]struct{}{
	ReportReasonSpam:          {},
	ReportReasonHarassment:    {},
	ReportReasonInappropriate: {},
	ReportReasonFakeProfile:   {},
	ReportReasonUnderage:      {},
	ReportReasonOther:         {},
}

// Report is write-only: the client creates reports and never reads them back.
type Report struct {
	TargetID   string `json:"reportedId"`
	TargetType string `json:"reportedType"`
	Reason     string `json:"reason"`
	Detail     string `json:"details,omitempty"`
}

// Settings are the public backend flags.
type Settings struct {
	MaintenanceMode bool `json:"maintenanceMode"`
	AdsEnabled      bool `json:"adsEnabled"`
}

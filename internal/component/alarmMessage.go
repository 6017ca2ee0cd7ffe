package component

// AlarmMessage is the JSON payload published when an alarm changes its
// active state.
type AlarmMessage struct {
	AlarmTopic          string      `json:"AlarmTopic"`
	AlarmId             string      `json:"AlarmId"`
	ActiveState         string      `json:"ActiveState"`
	PreviousActiveState string      `json:"PreviousActiveState"`
	LimitState          string      `json:"LimitState"`
	HighLimit           interface{} `json:"HighLimit"`
	ChangedTimestamp    string      `json:"ChangedTimestamp"`
	PreviousTimestamp   string      `json:"PreviousTimestamp"`
}

package storage

import (
	"time"
)

// ScanSession is one run of the blind scanner.
type ScanSession struct {
	ID           string    `json:"id"`                      // UUID of the session
	StartTime    time.Time `json:"startTime"`               // When the session was created
	Adapter      int       `json:"adapter"`                 // DVB adapter number
	Frontend     int       `json:"frontend"`                // Frontend number within the adapter
	FrontendName string    `json:"frontendName"`            // Name reported by FE_GET_INFO
	LNB          string    `json:"lnb"`                     // LNB used for the scan
	Config       *string   `json:"config,string,omitempty"` // Scan configuration in JSON format
}

// SessionInfo describes the device a session is created for.
type SessionInfo struct {
	Adapter      int
	Frontend     int
	FrontendName string
	LNB          string
}

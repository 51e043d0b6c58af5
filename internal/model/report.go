package model

import (
	"time"
)

// ScanType identifies what kind of target a report describes.
type ScanType string

const (
	// ScanTypeChannel is a scan of a channel and its videos tab.
	ScanTypeChannel ScanType = "channel"

	// ScanTypeVideo is a scan of a single watch page.
	ScanTypeVideo ScanType = "video"
)

// ScanReport is the result of scanning one target.
//
// A single struct is used for both scan types so that writers and the
// history database handle one shape. Channel scans fill Channel and Stats;
// video scans fill Video and Owner.
type ScanReport struct {
	// Target is the normalized URL that was scanned.
	Target string `json:"target"`

	// Type is the kind of target.
	Type ScanType `json:"type"`

	// DateScanned is when the scan started.
	DateScanned time.Time `json:"date_scanned"`

	// Success is true when the target yielded an entity.
	Success bool `json:"success"`

	// PageTitle is the <title> of the first fetched page.
	PageTitle string `json:"page_title,omitempty"`

	// Channel is the channel found by a channel scan.
	Channel *ChannelRecord `json:"channel,omitempty"`

	// Video is the video found by a video scan.
	Video *VideoRecord `json:"video,omitempty"`

	// Owner is the channel that published Video.
	Owner *ChannelRecord `json:"owner,omitempty"`

	// Stats are the totals over Channel.Videos.
	Stats *AggregateStats `json:"stats,omitempty"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// TimedOut is true if the scan was cut short by its deadline.
	TimedOut bool `json:"timed_out"`

	// Error is the first error that occurred during the scan.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewScanReport creates a report for target.
func NewScanReport(target string, scanType ScanType) *ScanReport {
	return &ScanReport{
		Target:      target,
		Type:        scanType,
		DateScanned: time.Now(),
	}
}

// AddStep records that the named step ran.
func (r *ScanReport) AddStep(name string) {
	r.PerformedSteps = append(r.PerformedSteps, name)
}

// SetError records err unless an earlier error is already recorded.
func (r *ScanReport) SetError(err error) {
	if err == nil || r.Error != nil {
		return
	}
	r.Error = err
	r.ErrorMessage = err.Error()
}

// HasEntity reports whether the scan found the entity its type asks for.
func (r *ScanReport) HasEntity() bool {
	switch r.Type {
	case ScanTypeChannel:
		return r.Channel != nil
	case ScanTypeVideo:
		return r.Video != nil
	default:
		return false
	}
}

// DisplayName returns the best human readable name of the scanned entity,
// falling back to the target URL.
func (r *ScanReport) DisplayName() string {
	switch {
	case r.Channel != nil && r.Channel.Name != nil:
		return *r.Channel.Name
	case r.Video != nil && r.Video.Title != nil:
		return *r.Video.Title
	default:
		return r.Target
	}
}

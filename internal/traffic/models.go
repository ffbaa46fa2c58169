// Package traffic holds the website side of the snapshot: sessions and
// pageviews, joined to orders through the session id.
package traffic

import "time"

// WebsiteSession is one visit, already attributed with its UTM parameters
// and device type by the upstream export.
type WebsiteSession struct {
	WebsiteSessionID uint      `gorm:"primaryKey;column:website_session_id" json:"website_session_id"`
	CreatedAt        time.Time `gorm:"index;not null" json:"created_at"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	IsRepeatSession  bool      `gorm:"not null;default:false" json:"is_repeat_session"`
	UTMSource        string    `gorm:"column:utm_source;index" json:"utm_source"`
	UTMCampaign      string    `gorm:"column:utm_campaign;index" json:"utm_campaign"`
	UTMContent       string    `gorm:"column:utm_content" json:"utm_content"`
	DeviceType       string    `gorm:"index" json:"device_type"`
	HTTPReferer      string    `gorm:"column:http_referer" json:"http_referer"`
}

func (WebsiteSession) TableName() string { return "website_sessions" }

// Pageview is a single page load within a session. A session with exactly
// one pageview is a bounce.
type Pageview struct {
	WebsitePageviewID uint      `gorm:"primaryKey;column:website_pageview_id"`
	CreatedAt         time.Time `gorm:"not null"`
	WebsiteSessionID  uint      `gorm:"index;not null"`
	PageviewURL       string    `gorm:"column:pageview_url;index;not null"`
}

func (Pageview) TableName() string { return "website_pageviews" }

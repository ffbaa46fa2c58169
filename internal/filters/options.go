package filters

import (
	"fmt"

	"gorm.io/gorm"
)

// Options lists the distinct values available for each filter dimension,
// used to populate the dashboard's filter controls.
type Options struct {
	Years     []int    `json:"years"`
	Months    []int    `json:"months"`
	Campaigns []string `json:"campaigns"`
	Sources   []string `json:"sources"`
	Devices   []string `json:"devices"`
}

// GetOptions enumerates the filter values present in the snapshot. Blank UTM
// and device values are skipped; they mean the session was not attributed,
// not that "" is a pickable campaign.
func GetOptions(db *gorm.DB) (*Options, error) {
	opts := &Options{
		Years:     []int{},
		Months:    []int{},
		Campaigns: []string{},
		Sources:   []string{},
		Devices:   []string{},
	}

	if err := db.Raw(`SELECT DISTINCT year FROM orders ORDER BY year ASC`).
		Scan(&opts.Years).Error; err != nil {
		return nil, fmt.Errorf("error fetching year options: %w", err)
	}

	if err := db.Raw(`SELECT DISTINCT month FROM orders ORDER BY month ASC`).
		Scan(&opts.Months).Error; err != nil {
		return nil, fmt.Errorf("error fetching month options: %w", err)
	}

	if err := db.Raw(`SELECT DISTINCT utm_campaign FROM website_sessions WHERE utm_campaign != '' ORDER BY utm_campaign ASC`).
		Scan(&opts.Campaigns).Error; err != nil {
		return nil, fmt.Errorf("error fetching campaign options: %w", err)
	}

	if err := db.Raw(`SELECT DISTINCT utm_source FROM website_sessions WHERE utm_source != '' ORDER BY utm_source ASC`).
		Scan(&opts.Sources).Error; err != nil {
		return nil, fmt.Errorf("error fetching source options: %w", err)
	}

	if err := db.Raw(`SELECT DISTINCT device_type FROM website_sessions WHERE device_type != '' ORDER BY device_type ASC`).
		Scan(&opts.Devices).Error; err != nil {
		return nil, fmt.Errorf("error fetching device options: %w", err)
	}

	return opts, nil
}

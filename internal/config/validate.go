package config

import (
	"fmt"
	"net/url"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true, "": true,
}

// Telegram allows at most 100 inline buttons per message.
const maxPageSize = 50

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() []string {
	var errs []string

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port: must be between 1 and 65535, got %d", c.Server.Port))
	}
	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}
	if !validLogFormats[c.Server.LogFormat] {
		errs = append(errs, fmt.Sprintf("server.log_format: must be text or json; got %q", c.Server.LogFormat))
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path: required")
	}

	if c.Telegram.Token == "" {
		errs = append(errs, "telegram.token: required")
	}
	if c.Telegram.StorageChat == 0 {
		errs = append(errs, "telegram.storage_chat: required")
	}
	if c.Telegram.APIURL != "" {
		if u, err := url.Parse(c.Telegram.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("telegram.api_url: invalid URL %q", c.Telegram.APIURL))
		}
	}
	if c.Telegram.PollTimeout < 0 {
		errs = append(errs, "telegram.poll_timeout: must not be negative")
	}
	if c.Telegram.SponsorChat != "" && c.Telegram.SponsorURL == "" {
		errs = append(errs, "telegram.sponsor_url: required when sponsor_chat is set")
	}
	if len(c.Telegram.Admins) == 0 {
		errs = append(errs, "telegram.admins: at least one admin user ID is required")
	}

	if c.Delivery.MaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("delivery.max_attempts: must be at least 1, got %d", c.Delivery.MaxAttempts))
	}
	if c.Delivery.InterItemDelay < 0 {
		errs = append(errs, "delivery.inter_item_delay: must not be negative")
	}
	if c.Delivery.ProgressEvery < 1 {
		errs = append(errs, fmt.Sprintf("delivery.progress_every: must be at least 1, got %d", c.Delivery.ProgressEvery))
	}
	if c.Delivery.Workers < 1 {
		errs = append(errs, fmt.Sprintf("delivery.workers: must be at least 1, got %d", c.Delivery.Workers))
	}

	if c.Browse.PageSize < 1 || c.Browse.PageSize > maxPageSize {
		errs = append(errs, fmt.Sprintf("browse.page_size: must be between 1 and %d, got %d", maxPageSize, c.Browse.PageSize))
	}
	if c.Browse.GroupsPageSize < 1 || c.Browse.GroupsPageSize > maxPageSize {
		errs = append(errs, fmt.Sprintf("browse.groups_page_size: must be between 1 and %d, got %d", maxPageSize, c.Browse.GroupsPageSize))
	}

	if c.Cleanup.SweepInterval < 0 {
		errs = append(errs, "cleanup.sweep_interval: must not be negative")
	}

	return errs
}

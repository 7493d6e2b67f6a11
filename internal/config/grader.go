package config

import (
	"strconv"
	"time"
)

// GraderConfig holds the stream queue and sandbox settings
type GraderConfig struct {
	StreamName    string
	GroupName     string
	ReadBlock     time.Duration
	GraderImage   string
	RunTimeout    time.Duration
	AdminChannel  string
	UserChannelFm string
}

func NewGraderConfig() *GraderConfig {
	return &GraderConfig{
		StreamName:    getEnv("SUBMISSIONS_STREAM", "submissions_stream"),
		GroupName:     getEnv("GRADER_GROUP", "grader_group"),
		ReadBlock:     durationEnv("STREAM_READ_BLOCK_SEC", 5),
		GraderImage:   getEnv("GRADER_IMAGE", "grader-image"),
		RunTimeout:    durationEnv("SANDBOX_RUN_TIMEOUT_SEC", 60),
		AdminChannel:  getEnv("ADMIN_CHANNEL", "admin_updates"),
		UserChannelFm: getEnv("USER_CHANNEL_FORMAT", "grading_result_%s"),
	}
}

// SweeperConfig holds the stale-job reconciliation settings
type SweeperConfig struct {
	Interval       time.Duration
	PendingMaxAge  time.Duration
}

func NewSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		Interval:      durationEnv("SWEEP_INTERVAL_SEC", 10),
		PendingMaxAge: durationEnv("SWEEP_PENDING_MAX_AGE_SEC", 60),
	}
}

func durationEnv(key string, fallbackSec int) time.Duration {
	sec, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		sec = fallbackSec
	}
	return time.Duration(sec) * time.Second
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the paper-trading arena.
type Config struct {
	Port              int
	LogLevel          string
	TickInterval      time.Duration // simulation cycle period
	BarInterval       time.Duration // candle bar width; must be a multiple of TickInterval
	InitialBalance    float64
	ClearingFeePerLot float64
	CommissionRate    float64
	LotStep           int64
	CandleWindow      int
	VolatilityScale   float64
	StreamInterval    time.Duration
	WebhookTimeout    time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// CyclesPerBar returns how many simulation cycles fit in one candle bar.
func (c *Config) CyclesPerBar() int {
	return int(c.BarInterval / c.TickInterval)
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	tickInterval, err := getDuration("TICK_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}
	if tickInterval <= 0 {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: must be > 0")
	}

	barInterval, err := getDuration("BAR_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid BAR_INTERVAL: %w", err)
	}
	if barInterval < tickInterval || barInterval%tickInterval != 0 {
		return nil, fmt.Errorf("invalid BAR_INTERVAL: must be a multiple of TICK_INTERVAL")
	}

	initialBalance, err := getFloat("INITIAL_BALANCE", 1_000_000)
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_BALANCE: %w", err)
	}
	if initialBalance <= 0 {
		return nil, fmt.Errorf("invalid INITIAL_BALANCE: must be > 0")
	}

	clearingFee, err := getFloat("CLEARING_FEE_PER_LOT", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid CLEARING_FEE_PER_LOT: %w", err)
	}
	if clearingFee < 0 {
		return nil, fmt.Errorf("invalid CLEARING_FEE_PER_LOT: must be >= 0")
	}

	commissionRate, err := getFloat("COMMISSION_RATE", 0.001)
	if err != nil {
		return nil, fmt.Errorf("invalid COMMISSION_RATE: %w", err)
	}
	if commissionRate < 0 {
		return nil, fmt.Errorf("invalid COMMISSION_RATE: must be >= 0")
	}

	lotStep, err := getInt("LOT_STEP", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid LOT_STEP: %w", err)
	}
	if lotStep < 1 {
		return nil, fmt.Errorf("invalid LOT_STEP: must be >= 1")
	}

	candleWindow, err := getInt("CANDLE_WINDOW", 60)
	if err != nil {
		return nil, fmt.Errorf("invalid CANDLE_WINDOW: %w", err)
	}
	if candleWindow < 1 {
		return nil, fmt.Errorf("invalid CANDLE_WINDOW: must be >= 1")
	}

	volatilityScale, err := getFloat("VOLATILITY_SCALE", 1.0)
	if err != nil {
		return nil, fmt.Errorf("invalid VOLATILITY_SCALE: %w", err)
	}
	if volatilityScale < 0 {
		return nil, fmt.Errorf("invalid VOLATILITY_SCALE: must be >= 0")
	}

	streamInterval, err := getDuration("STREAM_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid STREAM_INTERVAL: %w", err)
	}
	if streamInterval <= 0 {
		return nil, fmt.Errorf("invalid STREAM_INTERVAL: must be > 0")
	}

	webhookTimeout, err := getDuration("WEBHOOK_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:              port,
		LogLevel:          logLevel,
		TickInterval:      tickInterval,
		BarInterval:       barInterval,
		InitialBalance:    initialBalance,
		ClearingFeePerLot: clearingFee,
		CommissionRate:    commissionRate,
		LotStep:           int64(lotStep),
		CandleWindow:      candleWindow,
		VolatilityScale:   volatilityScale,
		StreamInterval:    streamInterval,
		WebhookTimeout:    webhookTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ShutdownTimeout:   shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

package logging

import (
	"go.uber.org/zap/zapcore"
)

// newSampledCore samples entries below Error. Error and above bypass the
// sampler so failures are never dropped.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	failures := &levelFilterCore{Core: core, min: zapcore.ErrorLevel, hasMin: true}
	below := &levelFilterCore{Core: core, max: zapcore.WarnLevel, hasMax: true}

	sampled := zapcore.NewSamplerWithOptions(below, cfg.Tick.Duration(), cfg.Initial, cfg.Thereafter)
	return zapcore.NewTee(failures, sampled)
}

// levelFilterCore restricts a core to an inclusive level range.
type levelFilterCore struct {
	zapcore.Core
	min, max       zapcore.Level
	hasMin, hasMax bool
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	if c.hasMin && lvl < c.min {
		return false
	}
	if c.hasMax && lvl > c.max {
		return false
	}
	return c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{
		Core:   c.Core.With(fields),
		min:    c.min,
		max:    c.max,
		hasMin: c.hasMin,
		hasMax: c.hasMax,
	}
}

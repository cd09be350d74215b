package monitor

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"inamqtt-go/drivers/ina2xx"
	"inamqtt-go/errcode"
)

// Sensor is the device being printed.
type Sensor interface {
	Read() (ina2xx.Reading, error)
}

// Service prints one reading per interval.
type Service struct {
	sensor   Sensor
	out      io.Writer
	interval time.Duration
	log      *zap.Logger
}

func New(sensor Sensor, out io.Writer, interval time.Duration, log *zap.Logger) *Service {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Service{sensor: sensor, out: out, interval: interval, log: log}
}

func (s *Service) Interval() time.Duration { return s.interval }

// Poll reads once and prints a line. Read errors are logged and the decoded
// sentinel values are printed anyway.
func (s *Service) Poll() {
	r, err := s.sensor.Read()
	if err != nil {
		s.log.Warn("sensor read failed", zap.String("code", string(errcode.Of(err))), zap.Error(err))
	}
	fmt.Fprintln(s.out, Format(r))
}

// Format renders the interactive line.
func Format(r ina2xx.Reading) string {
	return fmt.Sprintf("V=%.3fV I=%.3fmA P=%.3fmW Vshunt=%.3fmV", r.Bus_V, r.Current_mA, r.Power_mW, r.Shunt_mV)
}

// Run polls until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	s.log.Info("interactive polling", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("monitor service stopping")
			return
		case <-tick.C:
			s.Poll()
		}
	}
}

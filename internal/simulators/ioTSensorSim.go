package simulators

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// IoTSensorSim produces a random walk around a mean value.
type IoTSensorSim struct {
	SensorId string

	mu                sync.Mutex
	rnd               *rand.Rand
	mean              float64
	standardDeviation float64
	currentValue      float64

	// delay between data points in seconds; when randomize is set each
	// delay is drawn from [delayMin, delayMax)
	delayMin  int
	delayMax  int
	randomize bool
}

func NewIoTSensorSim(id string, mean, standardDeviation float64, delayMin, delayMax int, randomize bool) *IoTSensorSim {
	return newIoTSensorSim(id, mean, standardDeviation, delayMin, delayMax, randomize, time.Now().UnixNano())
}

func newIoTSensorSim(id string, mean, standardDeviation float64, delayMin, delayMax int, randomize bool, seed int64) *IoTSensorSim {
	rnd := rand.New(rand.NewSource(seed))
	if delayMin <= 0 {
		delayMin = 1
	}
	if delayMax <= delayMin {
		randomize = false
	}
	return &IoTSensorSim{
		SensorId:          id,
		rnd:               rnd,
		mean:              mean,
		standardDeviation: math.Abs(standardDeviation),
		currentValue:      mean - rnd.Float64(),
		delayMin:          delayMin,
		delayMax:          delayMax,
		randomize:         randomize,
	}
}

// Next advances the walk by one step and returns the new value.
func (s *IoTSensorSim) Next() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	valueChange := s.rnd.Float64() * s.standardDeviation / 10
	s.currentValue += valueChange * s.decideFactor()
	return s.currentValue
}

// decideFactor returns +1 to keep walking away from the mean or -1 to turn
// back. The further the value drifts, the likelier it turns back.
func (s *IoTSensorSim) decideFactor() float64 {
	var (
		continueDirection, changeDirection float64
		distance                           float64
	)
	if s.currentValue > s.mean {
		distance = s.currentValue - s.mean
		continueDirection = 1
		changeDirection = -1
	} else {
		distance = s.mean - s.currentValue
		continueDirection = -1
		changeDirection = 1
	}
	// 50/50 at the mean; the /50 damping was tuned empirically
	chance := (s.standardDeviation / 2) - (distance / 50)
	if s.standardDeviation*s.rnd.Float64() < chance {
		return continueDirection
	}
	return changeDirection
}

// UpdateSensorParams recenters the walk.
func (s *IoTSensorSim) UpdateSensorParams(mean, standardDeviation float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mean = mean
	s.currentValue = mean - s.rnd.Float64()
	s.standardDeviation = math.Abs(standardDeviation)
}

func (s *IoTSensorSim) nextDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	delay := s.delayMin
	if s.randomize {
		delay = s.rnd.Intn(s.delayMax-s.delayMin) + s.delayMin
	}
	return time.Duration(delay) * time.Second
}

// Run emits a first value right away, then one value per delay until ctx is
// done. The returned channel is closed when the sensor stops.
func (s *IoTSensorSim) Run(ctx context.Context, log *logrus.Logger) <-chan float64 {
	data := make(chan float64)
	go func() {
		defer close(data)
		log.WithField("Sensor Id", s.SensorId).Debugln("Started running 🔔")
		select {
		case data <- s.Next():
		case <-ctx.Done():
			return
		}
		for {
			select {
			case <-ctx.Done():
				log.WithField("Sensor Id", s.SensorId).Debugln("Got shutdown signal 🔔")
				return
			case <-time.After(s.nextDelay()):
				select {
				case data <- s.Next():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return data
}

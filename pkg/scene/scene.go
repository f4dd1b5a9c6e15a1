// Package scene loads and plays back scripted sequences of controller commands.
//
// A scene file is YAML:
//
//	name: sunset
//	repeat: 2
//	steps:
//	  - power: on
//	  - color: "#ff8000"
//	  - brightness: 200
//	  - wait: 1.5s
//	  - effect: auto
//	  - speed: 4
//
// Each step holds exactly one of power, color, brightness, effect, speed, fixed, raw or wait.
package scene

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sp105e/led-command/internal/log"
	"github.com/sp105e/led-command/pkg/action"
	"github.com/sp105e/led-command/pkg/protocol"
)

// RepeatForever makes Run loop until its context is cancelled.
const RepeatForever = -1

var (
	ErrEmptyScene   = errors.New("scene has no steps")
	ErrInvalidStep  = errors.New("invalid scene step")
	ErrInvalidScene = errors.New("invalid scene")
)

// Executor sends intents to a controller. *device.Controller satisfies this interface.
type Executor interface {
	Execute(ctx context.Context, intent protocol.Intent) error
}

type Scene struct {
	Name   string `yaml:"name"`
	Repeat int    `yaml:"repeat,omitempty"`
	Steps  []Step `yaml:"steps"`
}

type Step struct {
	Power      *string `yaml:"power,omitempty"`
	Color      *Color  `yaml:"color,omitempty"`
	Brightness *int    `yaml:"brightness,omitempty"`
	Effect     *string `yaml:"effect,omitempty"`
	Speed      *int    `yaml:"speed,omitempty"`
	Fixed      *string `yaml:"fixed,omitempty"`
	Raw        *string `yaml:"raw,omitempty"`
	Wait       *string `yaml:"wait,omitempty"`
}

// Color is either a "#rrggbb" string or a [red, green, blue] list.
type Color struct {
	Red, Green, Blue int
}

func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var channels []int
		if err := value.Decode(&channels); err != nil {
			return err
		}
		if len(channels) != 3 {
			return fmt.Errorf("line %d: color list needs 3 channels, got %d", value.Line, len(channels))
		}
		c.Red, c.Green, c.Blue = channels[0], channels[1], channels[2]
		return nil
	case yaml.ScalarNode:
		parsed, err := action.ColorHex(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		c.Red, c.Green, c.Blue = parsed.Red, parsed.Green, parsed.Blue
		return nil
	}
	return fmt.Errorf("line %d: color must be a hex string or a list", value.Line)
}

func (c Color) MarshalYAML() (interface{}, error) {
	return fmt.Sprintf("#%02x%02x%02x", c.Red, c.Green, c.Blue), nil
}

// Action is one resolved step: either an intent to execute or a pause.
type Action struct {
	Intent protocol.Intent
	Wait   time.Duration
}

// Load reads a scene from a YAML file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a scene. Unknown keys are rejected.
func Parse(data []byte) (*Scene, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var s Scene
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidScene, err)
	}
	if _, err := s.Actions(); err != nil {
		return nil, err
	}
	if s.Repeat < RepeatForever {
		return nil, fmt.Errorf("%w: repeat must be %d (forever) or a positive count", ErrInvalidScene, RepeatForever)
	}
	return &s, nil
}

// Actions resolves one pass through the scene's steps. Every intent is checked with
// protocol.Encode, so a scene that resolves without error will not fail validation when played.
func (s *Scene) Actions() ([]Action, error) {
	if len(s.Steps) == 0 {
		return nil, ErrEmptyScene
	}
	actions := make([]Action, 0, len(s.Steps))
	for i, step := range s.Steps {
		a, err := step.resolve()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		if a.Intent != nil {
			if _, err := protocol.Encode(a.Intent); err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// Intents returns the intents of one pass through the scene, skipping pauses.
func (s *Scene) Intents() ([]protocol.Intent, error) {
	actions, err := s.Actions()
	if err != nil {
		return nil, err
	}
	var intents []protocol.Intent
	for _, a := range actions {
		if a.Intent != nil {
			intents = append(intents, a.Intent)
		}
	}
	return intents, nil
}

// Run plays the scene through executor. Scenes with Repeat set to RepeatForever play until ctx
// is cancelled.
func (s *Scene) Run(ctx context.Context, executor Executor) error {
	actions, err := s.Actions()
	if err != nil {
		return err
	}
	passes := max(s.Repeat, 1)
	for pass := 0; s.Repeat == RepeatForever || pass < passes; pass++ {
		log.Debug("Scene %q: pass %d", s.Name, pass+1)
		for _, a := range actions {
			if a.Intent == nil {
				select {
				case <-time.After(a.Wait):
				case <-ctx.Done():
					return ctx.Err()
				}
				continue
			}
			if err := executor.Execute(ctx, a.Intent); err != nil {
				return err
			}
		}
	}
	return nil
}

func (step Step) resolve() (Action, error) {
	var actions []Action
	var errs []error
	add := func(i protocol.Intent, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		actions = append(actions, Action{Intent: i})
	}

	if step.Power != nil {
		switch strings.ToLower(*step.Power) {
		case "on", "true":
			add(action.PowerOn(), nil)
		case "off", "false":
			add(action.PowerOff(), nil)
		default:
			add(nil, fmt.Errorf("%w: power must be on or off, got %q", ErrInvalidStep, *step.Power))
		}
	}
	if step.Color != nil {
		add(action.Color(step.Color.Red, step.Color.Green, step.Color.Blue), nil)
	}
	if step.Brightness != nil {
		add(action.Brightness(*step.Brightness), nil)
	}
	if step.Effect != nil {
		effect, err := protocol.ParseEffect(*step.Effect)
		add(action.Effect(effect), err)
	}
	if step.Speed != nil {
		add(action.Speed(*step.Speed), nil)
	}
	if step.Fixed != nil {
		color, err := protocol.ParseFixedColor(*step.Fixed)
		add(action.FixedColor(color), err)
	}
	if step.Raw != nil {
		raw, err := action.RawHex(*step.Raw)
		add(raw, err)
	}
	if step.Wait != nil {
		d, err := time.ParseDuration(*step.Wait)
		if err == nil && d < 0 {
			err = fmt.Errorf("negative wait %s", d)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidStep, err))
		} else {
			actions = append(actions, Action{Wait: d})
		}
	}

	if len(errs) > 0 {
		return Action{}, errors.Join(errs...)
	}
	if len(actions) != 1 {
		return Action{}, fmt.Errorf("%w: expected exactly one action, found %d", ErrInvalidStep, len(actions))
	}
	return actions[0], nil
}

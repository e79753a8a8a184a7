package review

import (
	"fmt"
	"math"

	"contest-review/pkg/celengine"
	"contest-review/pkg/config"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"
)

const (
	DefaultBaseAward      int64 = 5
	DefaultScalingDivisor int64 = 2000
	DefaultFlatAward      int64 = 10
)

type taskTypeRule struct {
	UsesBrowseNum bool
	FlatAward     int64
}

var taskTypeTable = map[TaskType]taskTypeRule{
	TaskTypeGroupGrowth: {FlatAward: DefaultFlatAward},
	TaskTypeInGroup:     {FlatAward: DefaultFlatAward},
	TaskTypeOutGroup:    {FlatAward: DefaultFlatAward},
	TaskTypeOriginal:    {UsesBrowseNum: true},
}

// PointsPolicy suggests the award for a task. It never writes.
type PointsPolicy struct {
	BaseAward      int64
	ScalingDivisor int64
	FlatAwards     map[TaskType]int64

	programs map[TaskType]cel.Program
}

var defaultPolicy = DefaultPointsPolicy()

func DefaultPointsPolicy() *PointsPolicy {
	flat := make(map[TaskType]int64, len(taskTypeTable))
	for t, rule := range taskTypeTable {
		if !rule.UsesBrowseNum {
			flat[t] = rule.FlatAward
		}
	}
	return &PointsPolicy{
		BaseAward:      DefaultBaseAward,
		ScalingDivisor: DefaultScalingDivisor,
		FlatAwards:     flat,
	}
}

// NewPointsPolicy builds the policy from the POINTS config section. Award
// expressions are compiled once here so a bad expression fails startup.
func NewPointsPolicy(cfg *config.Config) (*PointsPolicy, error) {
	p := DefaultPointsPolicy()
	if cfg == nil {
		return p, nil
	}

	if cfg.Points.BaseAward > 0 {
		p.BaseAward = cfg.Points.BaseAward
	}
	if cfg.Points.ScalingDivisor > 0 {
		p.ScalingDivisor = cfg.Points.ScalingDivisor
	}
	if cfg.Points.FlatAward > 0 {
		for t := range p.FlatAwards {
			p.FlatAwards[t] = cfg.Points.FlatAward
		}
	}

	for name, expr := range cfg.Points.Expressions {
		if err := p.SetExpression(TaskType(name), expr); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// SetExpression overrides the award formula of t with a CEL expression over
// the double variable browse_num.
func (p *PointsPolicy) SetExpression(t TaskType, expr string) error {
	if !t.Valid() {
		return fmt.Errorf("points expression for unknown task type %q", t)
	}

	env, err := celengine.GetOrBuildEnv(map[string]interface{}{"browse_num": float64(0)})
	if err != nil {
		return err
	}

	prg, err := celengine.Compile(env, expr)
	if err != nil {
		return fmt.Errorf("points expression for %s: %w", t, err)
	}

	if p.programs == nil {
		p.programs = make(map[TaskType]cel.Program)
	}
	p.programs[t] = prg
	return nil
}

// Suggest returns the default award for task, always >= 0. Unknown task
// types suggest 0.
func (p *PointsPolicy) Suggest(task *TaskRecord) int64 {
	if task == nil {
		return 0
	}

	rule, ok := taskTypeTable[task.TaskType]
	if !ok {
		return 0
	}

	var browse int64
	if task.BrowseNum != nil && *task.BrowseNum > 0 {
		browse = *task.BrowseNum
	}

	if prg, ok := p.programs[task.TaskType]; ok {
		v, err := celengine.EvaluateNumber(prg, map[string]interface{}{"browse_num": float64(browse)})
		if err == nil && (math.IsNaN(v) || math.Abs(v) >= maxExpressionAward) {
			err = fmt.Errorf("award %v out of range", v)
		}
		if err == nil {
			return roundAward(v)
		}
		zap.L().Warn("points expression failed, using built-in formula",
			zap.String("task_type", string(task.TaskType)),
			zap.Error(err),
		)
	}

	if !rule.UsesBrowseNum {
		return p.FlatAwards[task.TaskType]
	}

	divisor := p.ScalingDivisor
	if divisor <= 0 {
		divisor = DefaultScalingDivisor
	}
	return roundAward(float64(p.BaseAward) * (1 + float64(browse)/float64(divisor)))
}

// ComputeSuggestedPoints applies the default policy.
func ComputeSuggestedPoints(task *TaskRecord) int64 {
	return defaultPolicy.Suggest(task)
}

// maxExpressionAward is the largest award an expression may produce, the
// last float64 that still holds every integer exactly.
const maxExpressionAward = 1 << 53

// roundAward rounds half away from zero and clamps to [0, MaxInt64].
func roundAward(v float64) int64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Round(v))
}

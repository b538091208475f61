/**
 * 漏洞启发式规则引擎
 * @author: sun977
 * @date: 2025.11.06
 * @description: 按规则表顺序对服务指纹、TLS 检查结果、暴露面检查结果逐条匹配，
 * 规则之间互不排斥，同一输入总是得到相同的发现与顺序
 */
package vuln

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"neoscanner/internal/core/model"
	"neoscanner/internal/pkg/logger"
	"neoscanner/internal/pkg/matcher"
)

//go:embed rules/default.yaml
var defaultRules []byte

// Rule 单条启发式规则
type Rule struct {
	ID          string            `yaml:"id"`
	Category    string            `yaml:"category"`
	Severity    model.Severity    `yaml:"severity"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Remediation string            `yaml:"remediation"`
	Scope       Scope             `yaml:"scope"`
	Evidence    string            `yaml:"evidence"` // 作为证据的字段名，为空时按作用域取默认值
	When        matcher.MatchRule `yaml:"when"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Engine 规则引擎，加载后只读，可并发使用
type Engine struct {
	rules []Rule
}

// ParseRules 解析并校验规则
func ParseRules(content []byte) ([]Rule, error) {
	var file ruleFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	for i := range file.Rules {
		r := &file.Rules[i]
		if r.ID == "" {
			return nil, fmt.Errorf("rule #%d: id is required", i)
		}
		sev, ok := model.ParseSeverity(string(r.Severity))
		if !ok {
			return nil, fmt.Errorf("rule %s: unknown severity %q", r.ID, r.Severity)
		}
		r.Severity = sev

		switch r.Scope {
		case ScopeService, ScopeTLS, ScopeExposure:
		default:
			return nil, fmt.Errorf("rule %s: unknown scope %q", r.ID, r.Scope)
		}

		// 空条件会匹配所有事实
		if len(r.When.And) == 0 && len(r.When.Or) == 0 && r.When.Field == "" {
			return nil, fmt.Errorf("rule %s: empty condition", r.ID)
		}
		if err := matcher.Validate(r.When); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, err)
		}
	}
	return file.Rules, nil
}

// NewEngine 加载内置规则，rulesFile 非空时追加其中的规则
func NewEngine(rulesFile string) (*Engine, error) {
	rules, err := ParseRules(defaultRules)
	if err != nil {
		return nil, fmt.Errorf("builtin rules: %w", err)
	}

	if rulesFile != "" {
		content, err := os.ReadFile(rulesFile)
		if err != nil {
			return nil, fmt.Errorf("read rules file: %w", err)
		}
		extra, err := ParseRules(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rulesFile, err)
		}
		rules = append(rules, extra...)
	}

	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if seen[r.ID] {
			return nil, fmt.Errorf("duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true
	}

	return NewEngineWithRules(rules), nil
}

// NewEngineWithRules 使用给定规则表创建引擎（规则需已通过 ParseRules 校验）
func NewEngineWithRules(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// Rules 返回规则表副本
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate 逐条规则匹配全部同作用域事实，输出顺序为规则顺序再按事实顺序
func (e *Engine) Evaluate(facts Facts) []model.VulnerabilityFinding {
	findings := make([]model.VulnerabilityFinding, 0)
	cache := make(map[Scope][]fact, 3)

	for _, rule := range e.rules {
		scoped, ok := cache[rule.Scope]
		if !ok {
			scoped = facts.byScope(rule.Scope)
			cache[rule.Scope] = scoped
		}

		for _, f := range scoped {
			matched, err := matcher.Match(f.fields, rule.When)
			if err != nil {
				// 校验过的规则只会在正则超时时报错，按未命中处理
				logger.WithFields(map[string]interface{}{
					"rule": rule.ID,
					"ip":   f.ip,
					"port": f.port,
				}).Warnf("rule evaluation failed: %v", err)
				continue
			}
			if !matched {
				continue
			}
			findings = append(findings, rule.finding(f))
		}
	}
	return findings
}

func (r *Rule) finding(f fact) model.VulnerabilityFinding {
	evidence := f.evidence
	if r.Evidence != "" {
		if v, ok := f.fields[r.Evidence]; ok {
			evidence = fmt.Sprintf("%s=%v", r.Evidence, v)
		}
	}
	return model.VulnerabilityFinding{
		RuleID:      r.ID,
		Category:    r.Category,
		Severity:    r.Severity,
		Title:       r.Title,
		Description: r.Description,
		IP:          f.ip,
		Port:        f.port,
		Service:     f.service,
		Evidence:    evidence,
		Remediation: r.Remediation,
	}
}

// RiskLevel 整体风险等级取最高严重度，没有发现时为 low
func RiskLevel(findings []model.VulnerabilityFinding) model.Severity {
	levels := make([]model.Severity, len(findings))
	for i, f := range findings {
		levels[i] = f.Severity
	}
	return model.MaxSeverity(levels...)
}

package service

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"

	"neoscanner/internal/core/model"
)

//go:embed signatures.yaml
var defaultSignatures []byte

// matchTimeout 单条正则的匹配超时，防止病态 banner 拖住 worker
const matchTimeout = 50 * time.Millisecond

// Signature 指纹规则
type Signature struct {
	Service    string           `yaml:"service"`
	Product    string           `yaml:"product"`
	Pattern    string           `yaml:"pattern"`
	Options    string           `yaml:"options"` // i: 忽略大小写 s: 单行模式 m: 多行模式
	Confidence model.Confidence `yaml:"confidence"`

	re *regexp2.Regexp
}

type signatureFile struct {
	Signatures []*Signature `yaml:"signatures"`
}

// ParseSignatures 解析并编译指纹表
func ParseSignatures(content []byte) ([]*Signature, error) {
	var file signatureFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse signatures: %w", err)
	}

	for i, sig := range file.Signatures {
		if sig.Service == "" || sig.Pattern == "" {
			return nil, fmt.Errorf("signature #%d: service and pattern are required", i)
		}
		switch sig.Confidence {
		case "":
			sig.Confidence = model.ConfidenceMedium
		case model.ConfidenceLow, model.ConfidenceMedium, model.ConfidenceHigh:
		default:
			return nil, fmt.Errorf("signature #%d: unknown confidence %q", i, sig.Confidence)
		}

		re, err := regexp2.Compile(sig.Pattern, regexOptions(sig.Options))
		if err != nil {
			return nil, fmt.Errorf("signature #%d (%s): %w", i, sig.Service, err)
		}
		re.MatchTimeout = matchTimeout
		sig.re = re
	}
	return file.Signatures, nil
}

// LoadSignatures 内置指纹表，extraFile 非空时追加其中的规则
func LoadSignatures(extraFile string) ([]*Signature, error) {
	sigs, err := ParseSignatures(defaultSignatures)
	if err != nil {
		return nil, err
	}
	if extraFile == "" {
		return sigs, nil
	}

	content, err := os.ReadFile(extraFile)
	if err != nil {
		return nil, fmt.Errorf("read signatures file: %w", err)
	}
	extra, err := ParseSignatures(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", extraFile, err)
	}
	return append(sigs, extra...), nil
}

func regexOptions(opts string) regexp2.RegexOptions {
	var o regexp2.RegexOptions
	for _, c := range strings.ToLower(opts) {
		switch c {
		case 'i':
			o |= regexp2.IgnoreCase
		case 's':
			o |= regexp2.Singleline
		case 'm':
			o |= regexp2.Multiline
		}
	}
	return o
}

// match 命中时返回版本号
func (s *Signature) match(banner string) (bool, string) {
	m, err := s.re.FindStringMatch(banner)
	if err != nil || m == nil {
		return false, ""
	}
	if g := m.GroupByName("version"); g != nil && g.Length > 0 {
		return true, g.String()
	}
	if groups := m.Groups(); len(groups) > 1 && groups[1].Length > 0 {
		return true, groups[1].String()
	}
	return true, ""
}

package matcher

import (
	"encoding/json"
	"fmt"
	"net"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/hashicorp/go-version"
)

// MatchRule 定义匹配规则树
// 既可以是条件节点(Leaf)，也可以是逻辑节点(Branch)
type MatchRule struct {
	// --- 逻辑节点 (Branch) ---
	And []MatchRule `json:"and,omitempty" yaml:"and,omitempty"`
	Or  []MatchRule `json:"or,omitempty" yaml:"or,omitempty"`

	// --- 条件节点 (Leaf) ---
	Field    string      `json:"field,omitempty" yaml:"field,omitempty"`
	Operator string      `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value    interface{} `json:"value,omitempty" yaml:"value,omitempty"`
}

// regexTimeout 单次正则匹配超时
const regexTimeout = 100 * time.Millisecond

// regexCache 规则中的正则只编译一次
var regexCache sync.Map // pattern -> *regexp2.Regexp

// leadingVersion 提取版本号前缀，"7.2p2" -> "7.2"，"5.7.33-log" -> "5.7.33"
var leadingVersion = regexp.MustCompile(`^v?(\d+(?:\.\d+)*)`)

// Match 评估数据是否符合规则
func Match(data interface{}, rule MatchRule) (bool, error) {
	// 1. 处理逻辑节点 (Branch)
	// 优先处理 And
	if len(rule.And) > 0 {
		for _, subRule := range rule.And {
			matched, err := Match(data, subRule)
			if err != nil {
				return false, err
			}
			if !matched {
				return false, nil
			}
		}
		return true, nil
	}

	if len(rule.Or) > 0 {
		for _, subRule := range rule.Or {
			matched, err := Match(data, subRule)
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}
		return false, nil
	}

	// 2. 处理条件节点 (Leaf)
	// 空规则视为匹配，类似空过滤器
	if rule.Field == "" && rule.Operator == "" {
		return true, nil
	}

	fieldValue, exists := getFieldValue(data, rule.Field)

	// exists / is_null / is_not_null 不要求字段存在
	switch rule.Operator {
	case "exists":
		return exists, nil
	case "is_null":
		return !exists || fieldValue == nil, nil
	case "is_not_null":
		return exists && fieldValue != nil, nil
	}

	if !exists {
		return false, nil
	}

	return evaluateCondition(fieldValue, rule.Operator, rule.Value)
}

// ParseJSON 解析 JSON 规则字符串
func ParseJSON(jsonStr string) (MatchRule, error) {
	var rule MatchRule
	err := json.Unmarshal([]byte(jsonStr), &rule)
	return rule, err
}

// knownOperators 支持的操作符
var knownOperators = map[string]bool{
	"exists": true, "is_null": true, "is_not_null": true,
	"equals": true, "not_equals": true, "contains": true, "not_contains": true,
	"starts_with": true, "ends_with": true, "regex": true, "like": true,
	"in": true, "not_in": true, "list_contains": true,
	"greater_than": true, "less_than": true, "greater_than_or_equal": true, "less_than_or_equal": true,
	"version_lt": true, "version_lte": true, "version_gt": true, "version_gte": true,
	"cidr": true,
}

// Validate 加载规则时检查操作符与正则，避免运行期才报错
func Validate(rule MatchRule) error {
	for _, sub := range rule.And {
		if err := Validate(sub); err != nil {
			return err
		}
	}
	for _, sub := range rule.Or {
		if err := Validate(sub); err != nil {
			return err
		}
	}
	if len(rule.And) > 0 || len(rule.Or) > 0 || (rule.Field == "" && rule.Operator == "") {
		return nil
	}

	if rule.Field == "" {
		return fmt.Errorf("operator %q without field", rule.Operator)
	}
	if !knownOperators[rule.Operator] {
		return fmt.Errorf("unknown operator: %s", rule.Operator)
	}
	switch rule.Operator {
	case "regex":
		pattern, ok := rule.Value.(string)
		if !ok {
			return fmt.Errorf("regex pattern must be string")
		}
		if _, err := compileRegex(pattern); err != nil {
			return fmt.Errorf("field %s: %w", rule.Field, err)
		}
	case "version_lt", "version_lte", "version_gt", "version_gte":
		if _, err := parseVersion(fmt.Sprintf("%v", rule.Value)); err != nil {
			return fmt.Errorf("field %s: %w", rule.Field, err)
		}
	}
	return nil
}

// getFieldValue 获取嵌套字段值 (支持 "meta.os" 这种点号语法)
func getFieldValue(data interface{}, fieldPath string) (interface{}, bool) {
	parts := strings.Split(fieldPath, ".")
	current := data

	for _, part := range parts {
		if current == nil {
			return nil, false
		}

		// 常见情况直接取，不走反射
		if m, ok := current.(map[string]interface{}); ok {
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			current = v
			continue
		}

		val := reflect.ValueOf(current)
		if val.Kind() == reflect.Pointer {
			if val.IsNil() {
				return nil, false
			}
			val = val.Elem()
		}
		if val.Kind() == reflect.Map {
			keyVal := val.MapIndex(reflect.ValueOf(part))
			if !keyVal.IsValid() {
				return nil, false
			}
			current = keyVal.Interface()
			continue
		}

		// struct 仅支持导出字段名匹配
		if val.Kind() == reflect.Struct {
			fieldVal := val.FieldByName(part)
			if !fieldVal.IsValid() {
				return nil, false
			}
			current = fieldVal.Interface()
			continue
		}

		return nil, false
	}

	return current, true
}

// evaluateCondition 评估单个条件
func evaluateCondition(actual interface{}, operator string, expected interface{}) (bool, error) {
	switch operator {
	case "equals":
		return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected), nil
	case "not_equals":
		return fmt.Sprintf("%v", actual) != fmt.Sprintf("%v", expected), nil
	case "contains":
		return strings.Contains(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected)), nil
	case "not_contains":
		return !strings.Contains(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected)), nil
	case "starts_with":
		return strings.HasPrefix(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected)), nil
	case "ends_with":
		return strings.HasSuffix(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected)), nil
	case "regex":
		pattern, ok := expected.(string)
		if !ok {
			return false, fmt.Errorf("regex pattern must be string")
		}
		re, err := compileRegex(pattern)
		if err != nil {
			return false, err
		}
		return re.MatchString(fmt.Sprintf("%v", actual))
	case "like":
		// SQL like: % -> .*, _ -> .
		pattern, ok := expected.(string)
		if !ok {
			return false, fmt.Errorf("like pattern must be string")
		}
		regexPattern := "^" + strings.ReplaceAll(strings.ReplaceAll(regexp.QuoteMeta(pattern), "%", ".*"), "_", ".") + "$"
		return regexp.MatchString(regexPattern, fmt.Sprintf("%v", actual))
	case "in", "not_in":
		expectedVal := reflect.ValueOf(expected)
		if expectedVal.Kind() != reflect.Slice && expectedVal.Kind() != reflect.Array {
			return false, fmt.Errorf("in/not_in expected value must be a list")
		}
		found := false
		actualStr := fmt.Sprintf("%v", actual)
		for i := 0; i < expectedVal.Len(); i++ {
			if fmt.Sprintf("%v", expectedVal.Index(i).Interface()) == actualStr {
				found = true
				break
			}
		}
		if operator == "in" {
			return found, nil
		}
		return !found, nil
	case "list_contains":
		actualVal := reflect.ValueOf(actual)
		if actualVal.Kind() != reflect.Slice && actualVal.Kind() != reflect.Array {
			return false, nil
		}
		expectedStr := fmt.Sprintf("%v", expected)
		for i := 0; i < actualVal.Len(); i++ {
			if fmt.Sprintf("%v", actualVal.Index(i).Interface()) == expectedStr {
				return true, nil
			}
		}
		return false, nil

	case "greater_than", "less_than", "greater_than_or_equal", "less_than_or_equal":
		return compareNumbers(actual, operator, expected)

	case "version_lt", "version_lte", "version_gt", "version_gte":
		return compareVersions(actual, operator, expected)

	case "cidr":
		ipStr, ok := actual.(string)
		if !ok {
			return false, nil
		}
		cidrStr, ok := expected.(string)
		if !ok {
			return false, fmt.Errorf("cidr expected value must be string")
		}
		_, ipNet, err := net.ParseCIDR(cidrStr)
		if err != nil {
			return false, err
		}
		ip := net.ParseIP(ipStr)
		if ip == nil {
			return false, nil
		}
		return ipNet.Contains(ip), nil

	default:
		return false, fmt.Errorf("unknown operator: %s", operator)
	}
}

func compileRegex(pattern string) (*regexp2.Regexp, error) {
	if re, ok := regexCache.Load(pattern); ok {
		return re.(*regexp2.Regexp), nil
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	re.MatchTimeout = regexTimeout
	regexCache.Store(pattern, re)
	return re, nil
}

// compareNumbers 数值比较，两边都不是数字时退化为字符串比较
func compareNumbers(actual interface{}, op string, expected interface{}) (bool, error) {
	v1, err1 := toFloat64(actual)
	v2, err2 := toFloat64(expected)
	if err2 != nil && err1 == nil {
		return false, fmt.Errorf("expected value is not a number: %v", expected)
	}
	if err1 != nil || err2 != nil {
		s1, ok1 := actual.(string)
		s2, ok2 := expected.(string)
		if !ok1 || !ok2 {
			return false, nil
		}
		return compareOrdered(strings.Compare(s1, s2), op), nil
	}

	switch {
	case v1 < v2:
		return compareOrdered(-1, op), nil
	case v1 > v2:
		return compareOrdered(1, op), nil
	}
	return compareOrdered(0, op), nil
}

// compareVersions 版本号比较，实际值无法解析时不匹配
func compareVersions(actual interface{}, op string, expected interface{}) (bool, error) {
	want, err := parseVersion(fmt.Sprintf("%v", expected))
	if err != nil {
		return false, err
	}
	got, err := parseVersion(fmt.Sprintf("%v", actual))
	if err != nil {
		return false, nil
	}

	switch op {
	case "version_lt":
		return got.LessThan(want), nil
	case "version_lte":
		return got.LessThanOrEqual(want), nil
	case "version_gt":
		return got.GreaterThan(want), nil
	case "version_gte":
		return got.GreaterThanOrEqual(want), nil
	}
	return false, nil
}

func parseVersion(raw string) (*version.Version, error) {
	m := leadingVersion.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return nil, fmt.Errorf("not a version: %q", raw)
	}
	return version.NewVersion(m[1])
}

func compareOrdered(cmp int, op string) bool {
	switch op {
	case "greater_than":
		return cmp > 0
	case "less_than":
		return cmp < 0
	case "greater_than_or_equal":
		return cmp >= 0
	case "less_than_or_equal":
		return cmp <= 0
	}
	return false
}

func toFloat64(v interface{}) (float64, error) {
	val := reflect.ValueOf(v)
	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(val.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(val.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return val.Float(), nil
	case reflect.String:
		f, err := strconv.ParseFloat(val.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse string to number: %v", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: type=%T value=%v", v, v)
	}
}

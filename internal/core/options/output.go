package options

import (
	"fmt"
	"path/filepath"
	"strings"
)

// OutputOptions 定义结果输出的通用参数
type OutputOptions struct {
	OutputJson string // --oj, --outputJson
	OutputCsv  string // --oc, --outputCsv
}

// Validate 校验输出文件扩展名
func (o *OutputOptions) Validate() error {
	if o.OutputJson != "" && !strings.EqualFold(filepath.Ext(o.OutputJson), ".json") {
		return fmt.Errorf("json output file must end with .json: %s", o.OutputJson)
	}
	if o.OutputCsv != "" && !strings.EqualFold(filepath.Ext(o.OutputCsv), ".csv") {
		return fmt.Errorf("csv output file must end with .csv: %s", o.OutputCsv)
	}
	return nil
}

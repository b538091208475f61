// 版本信息
// 发布时更新 Version，BuildTime/GitCommit/GoVersion 由构建参数注入：
// go build -ldflags "-X neoscanner/internal/pkg/version.GitCommit=$(git rev-parse --short HEAD)"

package version

import "runtime"

var (
	Version    = "1.2.0" // 版本号 -- 发布时候更新版本号
	APIVersion = "1.0"
	BuildTime  string
	GitCommit  string
	GoVersion  string
)

func GetVersion() string {
	return Version
}

// GetGoVersion 构建时未注入则取运行时版本
func GetGoVersion() string {
	if GoVersion != "" {
		return GoVersion
	}
	return runtime.Version()
}

// GetUserAgent HTTP 探测时使用的 UA
func GetUserAgent() string {
	return "Mozilla/5.0 (compatible; NeoScan-Scanner/" + Version + "; +https://github.com/sun977/NeoScan)"
}

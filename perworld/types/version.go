package types

import "github.com/Masterminds/semver/v3"

var (
	APPNAME = "PerWorld"
	VERSION = semver.MustParse(VERSION_MAIN + VERSION_PRERELEASE + VERSION_BUILD_METADATA)

	// VERSION_MAIN 主版本号
	VERSION_MAIN = "1.0.0"
	// VERSION_PRERELEASE 先行版本号
	VERSION_PRERELEASE = "-alpha"
	// VERSION_BUILD_METADATA 版本编译信息
	VERSION_BUILD_METADATA = ""

	// FORMAT_VERSION is written into every stored record.
	FORMAT_VERSION = semver.MustParse("1.0.0")
)

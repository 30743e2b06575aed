// 包 version：构建期注入的版本信息
package version

// Commit：构建时通过 -ldflags 注入提交号；默认 dev
var Commit = "dev"

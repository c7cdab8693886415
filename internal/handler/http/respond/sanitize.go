package respond

import (
	"regexp"
)

var (
	// api_token=... クエリパラメータ（プロバイダURLがエラーに含まれる場合）
	apiTokenPattern = regexp.MustCompile(`(api_token=)[^&\s"]+`)

	// Bearer トークン
	bearerPattern = regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-_.]+`)

	// DSN 内のデータベースパスワード
	dbPasswordPattern = regexp.MustCompile(`://([^:/\s]+):([^@\s]+)@`)
)

// SanitizeError は機密情報をマスクしたエラーメッセージを返す
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = apiTokenPattern.ReplaceAllString(msg, "${1}****")
	msg = bearerPattern.ReplaceAllString(msg, "${1}****")
	msg = dbPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}

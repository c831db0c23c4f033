package usecase

import "encoding/json"

// 監査ログの before/after 用
func auditJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

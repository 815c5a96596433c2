// Package isotime 以 ISO-8601 本地时间格式收发时间戳：
// 微秒为零时输出 "2006-01-02T15:04:05"，否则输出完整的六位微秒。
package isotime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const (
	layoutSeconds = "2006-01-02T15:04:05"
	layoutMicros  = "2006-01-02T15:04:05.000000"
)

// inputLayouts 按顺序尝试；小数部分位数不限
var inputLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Now 返回截断到微秒的当前时间，保证存储往返后不变
func Now() time.Time {
	return time.Now().Truncate(time.Microsecond)
}

// Format 把时间格式化为本地时区下的 ISO-8601 字符串
func Format(t time.Time) string {
	t = t.In(time.Local)
	if t.Nanosecond()/1000 == 0 {
		return t.Format(layoutSeconds)
	}
	return t.Format(layoutMicros)
}

// Parse 解析 ISO-8601 时间，接受 T 或空格分隔；带时区的输入按 RFC3339 解析。
func Parse(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(time.Local).Truncate(time.Microsecond), nil
	}
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.Truncate(time.Microsecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析时间 %q", s)
}

// Time 是按上述格式进行JSON编解码的时间
type Time struct {
	time.Time
}

// From 包装一个 time.Time
func From(t time.Time) Time {
	return Time{Time: t}
}

// Ptr 包装一个可空时间，nil 编码为 null
func Ptr(t *time.Time) *Time {
	if t == nil {
		return nil
	}
	return &Time{Time: *t}
}

func (t Time) String() string {
	return Format(t.Time)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(Format(t.Time))
}

func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

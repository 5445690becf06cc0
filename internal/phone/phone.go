// Package phone 维护电话号码的两种表示：存储格式（E.164）和显示格式。
// 两者都只由原始输入中的数字以及是否以 + 开头决定，格式化不会增删数字，
// 所以存储格式经过一次显示格式的往返后保持不变。
package phone

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/language"
)

type Formatter struct {
	Region      string
	callingCode int
}

// NewFormatter 根据 BCP-47 语言标签（如 en-US、zh-CN）确定默认地区
func NewFormatter(locale string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("无效的语言标签 %q: %w", locale, err)
	}
	region, _ := tag.Region()

	code := phonenumbers.GetCountryCodeForRegion(region.String())
	if code == 0 {
		return nil, fmt.Errorf("不支持的地区 %s", region)
	}

	return &Formatter{
		Region:      region.String(),
		callingCode: code,
	}, nil
}

func MustFormatter(locale string) *Formatter {
	f, err := NewFormatter(locale)
	if err != nil {
		panic(err)
	}
	return f
}

var defaultFormatter = MustFormatter("en-US")

// FormatDisplay 使用默认地区（美国）格式化
func FormatDisplay(raw string) string {
	return defaultFormatter.FormatDisplay(raw)
}

// FormatStorage 使用默认地区（美国）转换为存储格式
func FormatStorage(raw string) string {
	return defaultFormatter.FormatStorage(raw)
}

func (f *Formatter) CallingCode() int {
	return f.callingCode
}

func (f *Formatter) FormatDisplay(raw string) string {
	digits, international := split(raw)
	if digits == "" {
		if international {
			return "+"
		}
		return ""
	}

	if international {
		if strings.HasPrefix(digits, "1") {
			if len(digits) == 1 {
				return "+1"
			}
			return "+1 " + formatNANP(digits[1:])
		}
		if num, err := phonenumbers.Parse("+"+digits, "ZZ"); err == nil && phonenumbers.IsPossibleNumber(num) {
			formatted := phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
			// 个别地区的元数据会改写数字，这时退回原样显示
			if onlyDigits(formatted) == digits {
				return formatted
			}
		}
		return "+" + digits
	}

	if f.callingCode != 1 {
		return digits
	}
	if len(digits) == 11 && digits[0] == '1' {
		return "1 " + formatNANP(digits[1:])
	}
	return formatNANP(digits)
}

func (f *Formatter) FormatStorage(raw string) string {
	digits, international := split(raw)
	if digits == "" {
		return ""
	}

	if international {
		return "+" + digits
	}

	if f.callingCode == 1 {
		if len(digits) == 11 && digits[0] == '1' {
			return "+" + digits
		}
		return "+1" + digits
	}

	// 其他地区的国内号码可能带有国内长途前缀（如英国的 0），交给 phonenumbers 去掉
	if num, err := phonenumbers.Parse(digits, f.Region); err == nil && phonenumbers.IsPossibleNumber(num) {
		return phonenumbers.Format(num, phonenumbers.E164)
	}
	return "+" + strconv.Itoa(f.callingCode) + digits
}

// 北美号码边输入边格式化：(555) 123-4567
func formatNANP(n string) string {
	switch {
	case len(n) <= 2:
		return n
	case len(n) == 3:
		return "(" + n + ")"
	case len(n) <= 6:
		return "(" + n[:3] + ") " + n[3:]
	case len(n) <= 10:
		return "(" + n[:3] + ") " + n[3:6] + "-" + n[6:]
	default:
		return n
	}
}

func split(raw string) (digits string, international bool) {
	trimmed := strings.TrimSpace(raw)
	return onlyDigits(trimmed), strings.HasPrefix(trimmed, "+")
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

func GenerateRandomRole() domain.Role {
	roles := domain.Roles()
	return roles[rand.Intn(len(roles))]
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, py := range pinyinArray {
		length := rand.Intn(len(py)) + 1
		username += py[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

// GenerateRandomUser 生成随机用户，clientID 不为空时生成关联到该客户的 basic 用户
func GenerateRandomUser(password string, emailDomainName string, clientID *int64) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := GenerateRandomRole()
	if clientID != nil {
		role = domain.RoleBasic
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         role,
		ClientID:     clientID,
		IsActive:     true,
	}

	return user, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	randomPassword := make([]rune, length)
	for i := range randomPassword {
		randomPassword[i] = letters[rand.Intn(len(letters))]
	}
	return string(randomPassword)
}

func GenerateRandomID(letterLength int, digitLength int) string {
	randomID := make([]rune, letterLength+digitLength)
	for i := range randomID {
		if i < letterLength {
			randomID[i] = letters[rand.Intn(52)] // 只取字母
		} else {
			randomID[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(randomID)
}

var companySuffixes = []string{"科技", "传媒", "文化", "餐饮", "教育", "健身", "咖啡", "服饰"}

var industries = []string{"科技", "传媒", "餐饮", "教育", "零售", "健康"}

var Platforms = []string{"weibo", "wechat", "douyin", "xiaohongshu", "bilibili"}

// GenerateRandomNANPPhone 生成北美格式的十位号码，交换码不以 0 或 1 开头
func GenerateRandomNANPPhone() string {
	return fmt.Sprintf("%d%02d%d%02d%04d",
		rand.Intn(8)+2, rand.Intn(100),
		rand.Intn(8)+2, rand.Intn(100),
		rand.Intn(10000),
	)
}

func strPtr(s string) *string {
	return &s
}

// GenerateRandomClient 生成随机客户，phone 为未格式化的原始输入，由调用方转换为存储格式
func GenerateRandomClient(emailDomainName string) (client *domain.Client, phone string) {
	contact := GenerateRandomChineseName()
	name := commonSurnames[rand.Intn(len(commonSurnames))] + companySuffixes[rand.Intn(len(companySuffixes))] + GenerateRandomID(0, 3)

	client = &domain.Client{
		Name:        name,
		ContactName: strPtr(contact),
		Email:       strPtr(GenerateUsernameFromChineseName(contact) + "@" + emailDomainName),
		Industry:    strPtr(industries[rand.Intn(len(industries))]),
	}

	return client, GenerateRandomNANPPhone()
}

// GenerateRandomSocialMetrics 生成某个客户在 days 天内每天一条的指标，粉丝数逐日增长
func GenerateRandomSocialMetrics(clientID int64, days int) []*domain.SocialMetrics {
	platform := Platforms[rand.Intn(len(Platforms))]
	followers := int64(rand.Intn(50000) + 100)

	metrics := make([]*domain.SocialMetrics, days)
	for i := range metrics {
		followers += int64(rand.Intn(200))
		reach := followers * int64(rand.Intn(5)+1)
		impressions := reach * int64(rand.Intn(3)+1)
		engagement := float64(rand.Intn(1000)) / 100
		posts := int32(rand.Intn(5))
		f := followers

		metrics[i] = &domain.SocialMetrics{
			ClientID:    clientID,
			Platform:    platform,
			Followers:   &f,
			Engagement:  &engagement,
			Reach:       &reach,
			Impressions: &impressions,
			PostsCount:  &posts,
			RecordedAt:  time.Now().AddDate(0, 0, i-days+1).Truncate(24 * time.Hour),
		}
	}

	return metrics
}

// GenerateRandomContentApproval 生成待审核的内容，排期在未来两周内
func GenerateRandomContentApproval(clientID int64, submittedBy int64) *domain.ContentApproval {
	scheduledFor := time.Now().Add(time.Duration(rand.Intn(14*24)+1) * time.Hour).Truncate(time.Hour)

	return &domain.ContentApproval{
		ClientID:     clientID,
		Title:        "推文" + GenerateRandomID(3, 3),
		Body:         strPtr("推文正文" + GenerateRandomID(20, 10)),
		Platform:     strPtr(Platforms[rand.Intn(len(Platforms))]),
		ScheduledFor: &scheduledFor,
		Status:       domain.ApprovalPending,
		SubmittedBy:  submittedBy,
	}
}

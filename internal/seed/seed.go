package seed

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/phone"
)

// 导入文件的表头，账号列可以为空
const (
	HeaderName     = "客户名称"
	HeaderContact  = "联系人"
	HeaderEmail    = "邮箱"
	HeaderPhone    = "电话"
	HeaderIndustry = "行业"
	HeaderAccount  = "账号"
)

var requiredHeaders = []string{HeaderName, HeaderContact, HeaderEmail, HeaderPhone, HeaderIndustry, HeaderAccount}

type Store interface {
	CreateClient(c *domain.Client) error
	GetUserByUsername(username string) (*domain.User, error)
	CreateUser(user *domain.User) error
}

// ReadRecords 读取整个 CSV，每行按表头转换成 map
func ReadRecords(in io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(in)

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(headers[i], "\ufeff"))
	}
	for _, h := range requiredHeaders {
		if !slices.Contains(headers, h) {
			return nil, fmt.Errorf("没有找到列 %s", h)
		}
	}

	var records []map[string]string
	for {
		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		record := make(map[string]string)
		for i, value := range row {
			record[headers[i]] = strings.TrimSpace(value)
		}
		records = append(records, record)
	}

	return records, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ImportClients 插入每一行的客户，并为账号列不为空的行创建关联到该客户的 basic 用户。
// 出错的行会被跳过，返回成功插入的客户数量
func ImportClients(s Store, f *phone.Formatter, records []map[string]string, passwordHash string) int {
	cnt := 0
	for _, record := range records {
		name := record[HeaderName]
		if name == "" {
			slog.Error("没有找到客户名称", "record", record)
			continue
		}

		client := &domain.Client{
			Name:        name,
			ContactName: optional(record[HeaderContact]),
			Email:       optional(record[HeaderEmail]),
			Phone:       optional(f.FormatStorage(record[HeaderPhone])),
			Industry:    optional(record[HeaderIndustry]),
			IsActive:    true,
		}
		if err := s.CreateClient(client); err != nil {
			slog.Error("插入客户失败", "name", name, "error", err)
			continue
		}
		cnt++

		account := record[HeaderAccount]
		if account == "" {
			continue
		}

		_, err := s.GetUserByUsername(account)
		switch {
		case err == nil:
			slog.Warn("账号已存在，跳过", "username", account)
		case errors.Is(err, sql.ErrNoRows):
			user := &domain.User{
				Username:     account,
				PasswordHash: passwordHash,
				FullName:     record[HeaderContact],
				Email:        record[HeaderEmail],
				Role:         domain.RoleBasic,
				ClientID:     &client.ID,
				IsActive:     true,
			}
			if user.FullName == "" {
				user.FullName = name
			}
			if err := s.CreateUser(user); err != nil {
				slog.Error("插入客户账号失败", "username", account, "error", err)
			}
		default:
			slog.Error("获取账号失败", "username", account, "error", err)
		}
	}

	return cnt
}

func SeedClientsFromFile(s Store, f *phone.Formatter, path string, passwordHash string) {
	file, err := os.Open(path)
	if err != nil {
		slog.Error("打开文件失败", "error", err)
		return
	}
	defer file.Close()

	records, err := ReadRecords(file)
	if err != nil {
		slog.Error("读取文件失败", "error", err)
		return
	}

	cnt := ImportClients(s, f, records, passwordHash)
	slog.Info("导入客户完成", "count", cnt, "rows", len(records))
}

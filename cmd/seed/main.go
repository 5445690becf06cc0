package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/client-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/phone"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/repository"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/seed"
	"github.com/sysu-ecnc-dev/client-portal/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var file string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机员工, 2: 插入随机客户及其账号, 3: 为所有客户插入最近 n 天的指标, 4: 为所有客户插入 n 条待审核内容, 5: 从 CSV 导入客户)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.StringVar(&file, "file", "./internal/seed/data/clients.csv", "导入客户使用的 CSV 文件")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	formatter, err := phone.NewFormatter(cfg.PhoneLocale)
	if err != nil {
		logger.Error("无法创建电话号码格式化器", "error", err)
		return
	}

	if op != 0 && op != 5 && n <= 0 {
		slog.Error("请输入合法的记录数量")
		return
	}

	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		cnt := 0
		for i := 0; i < n; i++ {
			user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain, nil)
			if err != nil {
				slog.Error("无法生成随机用户", slog.String("error", err.Error()))
				continue
			}

			if err := repo.CreateUser(user); err != nil {
				slog.Error("无法插入用户", slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		slog.Info("插入员工成功", slog.Int("count", cnt))
	case 2:
		clientCnt, userCnt := 0, 0
		for i := 0; i < n; i++ {
			client, raw := utils.GenerateRandomClient(cfg.Email.UserDomain)
			storage := formatter.FormatStorage(raw)
			client.Phone = &storage

			if err := repo.CreateClient(client); err != nil {
				slog.Error("无法插入客户", slog.String("error", err.Error()))
				continue
			}
			clientCnt++

			// 每个客户 0~2 个客户端账号
			for j := 0; j < rand.Intn(3); j++ {
				user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain, &client.ID)
				if err != nil {
					slog.Error("无法生成随机用户", slog.String("error", err.Error()))
					continue
				}
				if err := repo.CreateUser(user); err != nil {
					slog.Error("无法插入用户", slog.String("error", err.Error()))
					continue
				}
				userCnt++
			}
		}

		slog.Info("插入客户成功", slog.Int("clients", clientCnt), slog.Int("users", userCnt))
	case 3:
		clients, err := repo.GetAllClients()
		if err != nil {
			slog.Error("无法获取所有客户", slog.String("error", err.Error()))
			return
		}

		cnt := 0
		for _, client := range clients {
			for _, m := range utils.GenerateRandomSocialMetrics(client.ID, n) {
				if err := repo.InsertSocialMetrics(m); err != nil {
					slog.Error("无法插入指标", slog.String("error", err.Error()))
					continue
				}
				cnt++
			}
		}

		slog.Info("插入指标成功", slog.Int("count", cnt))
	case 4:
		clients, err := repo.GetAllClients()
		if err != nil {
			slog.Error("无法获取所有客户", slog.String("error", err.Error()))
			return
		}

		users, err := repo.GetAllUsers()
		if err != nil {
			slog.Error("无法获取所有用户", slog.String("error", err.Error()))
			return
		}

		// 只有 assistant 及以上的员工可以提交内容
		var staff []*domain.User
		for _, u := range users {
			if u.ClientID == nil && u.Role.AtLeast(domain.RoleAssistant) {
				staff = append(staff, u)
			}
		}
		if len(staff) == 0 {
			slog.Error("没有可以提交内容的员工，请先插入员工")
			return
		}

		cnt := 0
		for _, client := range clients {
			for i := 0; i < n; i++ {
				submitter := staff[rand.Intn(len(staff))]
				a := utils.GenerateRandomContentApproval(client.ID, submitter.ID)
				if err := repo.CreateContentApproval(a); err != nil {
					slog.Error("无法插入待审核内容", slog.String("error", err.Error()))
					continue
				}
				cnt++
			}
		}

		slog.Info("插入待审核内容成功", slog.Int("count", cnt))
	case 5:
		passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.Seed.User.Password), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("无法生成密码哈希", slog.String("error", err.Error()))
			return
		}
		seed.SeedClientsFromFile(repo, formatter, file, string(passwordHash))
	default:
		slog.Error("指定的操作非法")
	}
}

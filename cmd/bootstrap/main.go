// Package main 初始化工具：建表、Milvus 集合与种子数据
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"knowledge-qa-api/internal/config"
	"knowledge-qa-api/internal/domain/entity"
	"knowledge-qa-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化依赖（PostgreSQL + Milvus）
	deps, cleanup, err := wire.InitializeBootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize bootstrap dependencies: %v", err)
	}
	defer cleanup()

	// 3. 建表
	fmt.Println("Running database migrations...")
	err = deps.PgClient.DB().AutoMigrate(
		&entity.User{},
		&entity.Collection{},
		&entity.Document{},
		&entity.ConversationSession{},
		&entity.ConversationTurn{},
		&entity.PipelineConfig{},
		&entity.LLMProvider{},
	)
	if err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// 4. 确保 Milvus 分片集合存在
	fmt.Println("Ensuring Milvus collection...")
	if err := deps.VectorRepo.EnsureDocumentChunksCollection(ctx); err != nil {
		log.Fatalf("failed to ensure milvus collection: %v", err)
	}

	// 5. 创建首个管理员
	adminEmail := os.Getenv("BOOTSTRAP_ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@example.com"
	}
	adminPassword := os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123" // 生产环境请务必通过环境变量设置
	}

	userExists, err := deps.UserRepo.ExistsByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatalf("failed to check admin existence: %v", err)
	}

	if !userExists {
		fmt.Printf("Creating admin user: %s...\n", adminEmail)
		admin := entity.NewUser(adminEmail, "System Admin")
		admin.Role = entity.UserRoleAdmin
		if err := admin.SetPassword(adminPassword); err != nil {
			log.Fatalf("failed to hash admin password: %v", err)
		}

		if err := deps.UserRepo.Create(ctx, admin); err != nil {
			log.Fatalf("failed to create admin user: %v", err)
		}
		fmt.Println("Admin user created successfully.")
	} else {
		fmt.Printf("Admin user %s already exists.\n", adminEmail)
	}

	// 6. 从静态配置播种默认 LLM 提供方，管道解析的最后兜底
	if name := cfg.LLM.DefaultProvider; name != "" {
		seedDefaultProvider(ctx, deps, cfg, name)
	}

	fmt.Println("Bootstrap completed successfully.")
}

func seedDefaultProvider(ctx context.Context, deps *wire.Bootstrap, cfg *config.Config, name string) {
	existing, err := deps.ProviderRepo.GetByName(ctx, name)
	if err != nil {
		log.Fatalf("failed to check provider existence: %v", err)
	}
	if existing != nil {
		fmt.Printf("Default provider %s already exists.\n", name)
		return
	}

	pc, ok := cfg.LLM.Providers[name]
	if !ok {
		fmt.Printf("Provider %s not found in config, skip seeding.\n", name)
		return
	}

	fmt.Printf("Creating default provider: %s...\n", name)
	provider := entity.NewLLMProvider(name, pc.Model)
	provider.BaseURL = pc.BaseURL
	provider.APIKey = pc.APIKey
	provider.EmbedModel = cfg.Embedding.Model
	provider.IsDefault = true
	if err := deps.ProviderRepo.Create(ctx, provider); err != nil {
		log.Fatalf("failed to create default provider: %v", err)
	}
	fmt.Println("Default provider created successfully.")
}

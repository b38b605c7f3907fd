package main

import (
	"log"

	"github.com/docline/docline/chat"
	"github.com/docline/docline/config"
	"github.com/docline/docline/db"
	"github.com/docline/docline/server"
	"github.com/docline/docline/services"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	gormDB := db.GetDB(conf)
	if conf.SeedDemoData {
		if err := db.SeedDemoAccounts(gormDB.DB); err != nil {
			log.Fatalf("error seeding demo accounts: %v", err)
		}
	}

	authRepo := db.NewAuthRepo(gormDB)
	chatRepo := db.NewChatRepo(gormDB)

	authService := services.NewAuthService(authRepo, conf)
	chatService := services.NewChatService(chatRepo, authRepo, conf)
	hub := chat.NewHub(chatRepo)

	s := &server.Server{
		Config:         conf,
		AuthRepository: authRepo,
		ChatRepository: chatRepo,
		AuthService:    authService,
		ChatService:    chatService,
		Hub:            hub,
	}

	s.Start()
}

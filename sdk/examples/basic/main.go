package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/birbparty/birb-baas/sdk"
)

type Article struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

func main() {
	baseURL := getEnv("BAAS_BASE_URL", "http://localhost:8080")
	apiKey := getEnv("BAAS_API_KEY", "demo")

	app, err := sdk.New(apiKey, sdk.DefaultOptions().WithBaseURL(baseURL))
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	ctx := context.Background()

	app.Events().AddEvent(sdk.EventTokenUpdated, func(data interface{}) {
		fmt.Println("✓ Token stored")
	})

	fmt.Println("--- Login ---")
	if _, err := app.Membership.Login(ctx, getEnv("BAAS_USER", "admin"), getEnv("BAAS_PASSWORD", "admin")); err != nil {
		log.Fatalf("Failed to log in: %v", err)
	}
	user, err := app.Membership.LoadUser(ctx)
	if err != nil {
		log.Fatalf("Failed to load user: %v", err)
	}
	fmt.Printf("✓ Signed in as %s\n", user.UserName)

	fmt.Println("\n--- Articles ---")
	resp, err := app.Articles.Create(ctx, Article{Title: "Hello", Content: "<p>World</p>"})
	if err != nil {
		log.Fatalf("Failed to create article: %v", err)
	}
	created, err := sdk.DecodeAs[Article](resp)
	if err != nil {
		log.Fatalf("Failed to decode article: %v", err)
	}
	fmt.Printf("✓ Created article %s\n", created.ID)

	if _, err := app.Articles.Publish(ctx, created.ID); err != nil {
		log.Fatalf("Failed to publish: %v", err)
	}

	resp, err = app.Articles.Find(ctx, &sdk.QueryOptions{Page: 1, RecordsPerPage: 10})
	if err != nil {
		log.Fatalf("Failed to list articles: %v", err)
	}
	page, err := sdk.DecodePage[Article](resp)
	if err != nil {
		log.Fatalf("Failed to decode page: %v", err)
	}
	for _, a := range page.Items {
		fmt.Printf("  %s  %-20s %s\n", a.ID, a.Title, a.Status)
	}

	if _, err := app.Articles.Get(ctx, "does-not-exist", nil); sdk.IsNotFound(err) {
		fmt.Println("✓ Missing article reported as not found")
	}

	fmt.Println("\n--- Logout ---")
	if err := app.Membership.Logout(ctx); err != nil {
		log.Fatalf("Failed to log out: %v", err)
	}
	fmt.Println("✓ Done")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

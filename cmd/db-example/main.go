package main

import (
	"context"
	"fmt"
	"log"

	"github.com/curatedthreads/threads-backend/internal/db"
	"github.com/curatedthreads/threads-backend/internal/db/entities"
	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

// Demo of the content-store abstraction: CRUD, filters, pagination,
// cascades and rollback, all against the in-memory backend.
func main() {
	ctx := context.Background()

	fmt.Println("=== Content Store Demo ===")

	database := db.NewInMemoryDatabase()

	if err := db.ConnectAndMigrate(ctx, database, db.AllSchemas()); err != nil {
		log.Fatalf("Failed to setup store: %v", err)
	}
	defer database.Disconnect(ctx)

	categoryRepo := database.Repository(entities.CategorySchema)
	postRepo := database.Repository(entities.PostSchema)

	fmt.Println("--- Basic CRUD Operations ---")

	fmt.Println("Creating categories...")
	for _, categoryData := range db.CategoryFixtures {
		category, err := categoryRepo.Create(ctx, categoryData)
		if err != nil {
			log.Printf("Failed to create category: %v", err)
			continue
		}
		fmt.Printf("Created category: %s\n", category["category_name"])
	}

	fmt.Println("\nCreating posts...")
	for _, postData := range db.PostFixtures {
		post, err := postRepo.Create(ctx, postData)
		if err != nil {
			log.Printf("Failed to create post: %v", err)
			continue
		}
		fmt.Printf("Created post: %s by @%s\n", post["tweet_id"], post["screen_name"])
	}

	fmt.Println("\n--- Query Operations ---")

	approved, err := postRepo.FindMany(ctx, &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: []interfaces.Filter{
				{Field: "flag", Value: true},
			},
		},
		OrderBy: []interfaces.OrderBy{
			{Field: "favorite_count", Direction: "desc"},
		},
	})
	if err != nil {
		log.Fatalf("Failed to find approved posts: %v", err)
	}

	fmt.Printf("Found %d approved posts:\n", approved.Total)
	for _, post := range approved.Data {
		fmt.Printf("  - @%s (%v likes)\n", post["screen_name"], post["favorite_count"])
	}

	popular, err := postRepo.FindMany(ctx, &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: []interfaces.Filter{
				{
					Field: "favorite_count",
					Operator: &interfaces.FilterOperator{
						Gte: 100,
					},
				},
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to find popular posts: %v", err)
	}

	fmt.Printf("\nFound %d posts with 100+ likes:\n", popular.Total)
	for _, post := range popular.Data {
		fmt.Printf("  - @%s\n", post["screen_name"])
	}

	search, err := postRepo.FindMany(ctx, &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: []interfaces.Filter{
				{
					Field: "tweet_text",
					Operator: &interfaces.FilterOperator{
						Like:          "%fever%",
						CaseSensitive: boolPtr(false),
					},
				},
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to search posts: %v", err)
	}

	fmt.Printf("\nPosts mentioning 'fever' (%d found):\n", search.Total)
	for _, post := range search.Data {
		fmt.Printf("  - @%s\n", post["screen_name"])
	}

	fmt.Println("\n--- Pagination Example ---")

	limit := 2
	offset := 0
	page := 1

	for {
		pageResult, err := postRepo.FindMany(ctx, &interfaces.Query{
			Limit:  &limit,
			Offset: &offset,
			OrderBy: []interfaces.OrderBy{
				{Field: "screen_name", Direction: "asc"},
			},
		})
		if err != nil {
			log.Fatalf("Failed to get page: %v", err)
		}

		if len(pageResult.Data) == 0 {
			break
		}

		fmt.Printf("Page %d (total: %d):\n", page, pageResult.Total)
		for _, post := range pageResult.Data {
			fmt.Printf("  - @%s\n", post["screen_name"])
		}

		offset += limit
		page++

		if offset >= int(pageResult.Total) {
			break
		}
	}

	fmt.Println("\n--- Transaction Example: rename cascade ---")

	err = database.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		categories := tx.Repository(entities.CategorySchema)
		posts := tx.Repository(entities.PostSchema)

		record, err := categories.FindOne(ctx, &interfaces.Query{
			Where: &interfaces.Filters{
				Conditions: []interfaces.Filter{
					{Field: "category_name", Value: "Cardiology"},
				},
			},
		})
		if err != nil {
			return err
		}

		if _, err := categories.Update(ctx, interfaces.StringID(record["id"].(string)), map[string]interface{}{
			"category_name": "Heart Health",
		}); err != nil {
			return err
		}

		touched, err := posts.UpdateMany(ctx, &interfaces.Filters{
			Conditions: []interfaces.Filter{
				{Field: "category", Value: "Cardiology"},
			},
		}, map[string]interface{}{
			"category": "Heart Health",
		})
		if err != nil {
			return err
		}

		fmt.Printf("Renamed category; %d posts rewritten\n", touched)
		return nil
	})
	if err != nil {
		log.Printf("Transaction failed: %v", err)
	}

	fmt.Println("\n--- Transaction Example: rollback ---")

	err = database.Transaction(ctx, func(ctx context.Context, tx interfaces.Transaction) error {
		categories := tx.Repository(entities.CategorySchema)

		if _, err := categories.Create(ctx, map[string]interface{}{
			"category_name": "Should Not Exist",
		}); err != nil {
			return err
		}

		return fmt.Errorf("simulated error")
	})
	if err != nil {
		fmt.Printf("Transaction failed as expected: %v\n", err)
	}

	_, err = categoryRepo.FindOne(ctx, &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: []interfaces.Filter{
				{Field: "category_name", Value: "Should Not Exist"},
			},
		},
	})
	if err == interfaces.ErrNotFound {
		fmt.Println("Rollback successful - category was not created")
	} else if err != nil {
		log.Printf("Error checking rollback: %v", err)
	} else {
		log.Print("Rollback failed - category was created")
	}

	fmt.Println("\n--- Constraint Example ---")

	_, err = postRepo.Create(ctx, db.PostFixtures[0])
	if err != nil {
		fmt.Printf("Unique constraint error (expected): %v\n", err)
	}

	fmt.Println("\n--- Final Statistics ---")

	postCount, _ := postRepo.Count(ctx, nil)
	categoryCount, _ := categoryRepo.Count(ctx, nil)
	pendingCount, _ := postRepo.Count(ctx, &interfaces.Query{
		Where: &interfaces.Filters{
			Conditions: []interfaces.Filter{
				{Field: "flag", Value: false},
			},
		},
	})

	fmt.Printf("Total posts: %d\n", postCount)
	fmt.Printf("Total categories: %d\n", categoryCount)
	fmt.Printf("Pending moderation: %d\n", pendingCount)

	fmt.Println("\n=== Demo completed ===")
}

func boolPtr(b bool) *bool { return &b }

package db

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedTestData resets the database and populates it with demo users, likes,
// photos and messages.
//
// Behavior:
//  1. Clears existing data in all four tables.
//  2. Creates 20 users (10 male, 10 female) with hashed passwords.
//  3. Generates random directed likes; every 3rd pair is made mutual so the
//     demo data contains matches.
//  4. Gives each user a main photo and seeds a short conversation between the
//     first matched pair.
//
// Compatible with both MySQL and SQLite (AUTO_INCREMENT reset skipped for SQLite).
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"messages", "photos", "likes", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range []string{"messages", "photos", "likes", "users"} {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('messages','photos','likes','users')")
	}

	log.Println("Cleared existing data")

	// --- Seed Users (10 male, 10 female) ---
	cities := []string{"Paris", "Lyon", "Marseille", "Toulouse"}
	interests := []string{"sport", "music", "travel", "cooking", "cinema", "reading"}

	birth := time.Date(1995, time.June, 15, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		gender := GenderMale
		if i > 10 {
			gender = GenderFemale
		}

		bd := birth.AddDate(0, 0, r.Intn(3000))
		picks := []string{
			interests[r.Intn(len(interests))],
			interests[r.Intn(len(interests))],
		}
		raw, _ := json.Marshal(picks)

		user := User{
			Username:                fmt.Sprintf("user%d", i),
			Email:                   fmt.Sprintf("user%d@example.com", i),
			PasswordHash:            string(hash),
			Name:                    fmt.Sprintf("user%d", i),
			BirthDate:               &bd,
			Age:                     AgeAt(bd, time.Now()),
			Gender:                  gender,
			City:                    cities[r.Intn(len(cities))],
			Interests:               raw,
			SeekingRelationshipType: RelationshipSerious,
			Enabled:                 true,
		}

		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		photo := Photo{
			UserID:      user.ID,
			URL:         fmt.Sprintf("http://localhost:8080/uploads/seed-%d.jpg", i),
			Position:    1,
			IsMain:      true,
			ContentType: "image/jpeg",
		}
		if err := db.Create(&photo).Error; err != nil {
			return fmt.Errorf("failed to seed photo: %w", err)
		}
	}
	log.Println("Seeded 20 users with main photos.")

	// --- Seed Likes ---
	var users []User
	if err := db.Order("id").Find(&users).Error; err != nil {
		return err
	}

	counter := 0
	var firstMatch [2]uint64
	for _, actor := range users {
		for j := 0; j < 8; j++ {
			target := users[r.Intn(len(users))]
			if actor.ID == target.ID || actor.Gender == target.Gender {
				continue
			}

			like := Like{LikerID: actor.ID, LikedUserID: target.ID}
			if err := db.Where(&Like{LikerID: actor.ID, LikedUserID: target.ID}).
				FirstOrCreate(&like).Error; err != nil {
				return fmt.Errorf("failed to seed like: %w", err)
			}

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				recip := Like{LikerID: target.ID, LikedUserID: actor.ID}
				if err := db.Where(&Like{LikerID: target.ID, LikedUserID: actor.ID}).
					FirstOrCreate(&recip).Error; err != nil {
					return fmt.Errorf("failed to seed reciprocal like: %w", err)
				}
				if firstMatch[0] == 0 {
					firstMatch = [2]uint64{actor.ID, target.ID}
				}
			}
			counter++
		}
	}
	log.Printf("Seeded %d likes.", counter)

	// --- Seed a conversation between the first matched pair ---
	if firstMatch[0] != 0 {
		msgs := []Message{
			{SenderID: firstMatch[0], ReceiverID: firstMatch[1], Content: "Hey, we matched!", MessageType: MessageTypeText},
			{SenderID: firstMatch[1], ReceiverID: firstMatch[0], Content: "Hi! Nice to meet you", MessageType: MessageTypeText},
		}
		if err := db.Create(&msgs).Error; err != nil {
			return fmt.Errorf("failed to seed messages: %w", err)
		}
	}

	return nil
}

// AgeAt computes a full-year age from a birth date, the same derivation the
// user service applies on create/update.
func AgeAt(birthDate time.Time, now time.Time) int {
	age := now.Year() - birthDate.Year()
	anniversary := birthDate.AddDate(age, 0, 0)
	if anniversary.After(now) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

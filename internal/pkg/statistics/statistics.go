package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/cache"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/database"
)

const (
	CacheKeyListingsTotal = "statistics:listings:total"
	CacheKeyListingsDaily = "statistics:listings:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyUsers         = "statistics:users:total"
	CacheExpiration       = 30 * time.Minute
)

// StatisticsData enthält die Statistikdaten für die Startseite
type StatisticsData struct {
	TodayListings int
	TotalUsers    int
	TotalListings int
}

// Variablen für die Cache-Aktualisierungslogik
var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute // Aktualisiere den Cache alle 5 Minuten
)

// ShouldUpdateCache prüft, ob der Cache aktualisiert werden sollte
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded aktualisiert den Cache, wenn nötig
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		log.Println("Aktualisiere Statistik-Cache...")
		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Fehler beim Aktualisieren des Statistik-Caches: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// UpdateStatisticsCache updates all statistics in the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	// Count published listings
	var totalListings int64
	if err := db.Model(&models.Property{}).Where("status = ?", models.PropertyStatusPublished).Count(&totalListings).Error; err != nil {
		log.Printf("Error counting listings: %v", err)
		return err
	}

	// Count listings published today
	var todayListings int64
	today := time.Now().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	if err := db.Model(&models.Property{}).Where("published_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&todayListings).Error; err != nil {
		log.Printf("Error counting today's listings: %v", err)
		return err
	}

	// Count total users
	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting total users: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyListingsTotal, strconv.FormatInt(totalListings, 10), CacheExpiration); err != nil {
		return err
	}

	dailyKey := fmt.Sprintf(CacheKeyListingsDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayListings, 10), CacheExpiration); err != nil {
		return err
	}

	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		return err
	}

	return nil
}

// GetStatistics returns the cached homepage numbers, refreshing lazily.
func GetStatistics() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TotalListings: getCachedCount(CacheKeyListingsTotal),
		TodayListings: getCachedCount(fmt.Sprintf(CacheKeyListingsDaily, time.Now().Format("2006-01-02"))),
		TotalUsers:    getCachedCount(CacheKeyUsers),
	}
}

func getCachedCount(key string) int {
	val, err := cache.Get(key)
	if err != nil || val == "" {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return n
}

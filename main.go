package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/Tayyab2344/Trello/api"
	"github.com/Tayyab2344/Trello/domain"
	"github.com/Tayyab2344/Trello/storage"
	"github.com/Tayyab2344/Trello/stream"
)

const defaultEventsChannel = "board-events"

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing storage config")
	}
	names := storage.DefaultNames()
	if v := os.Getenv("BOARDS_TABLE"); v != "" {
		names.Boards = v
	}
	if v := os.Getenv("LISTS_TABLE"); v != "" {
		names.Lists = v
	}
	if v := os.Getenv("CARDS_TABLE"); v != "" {
		names.Cards = v
	}
	if v := os.Getenv("USERS_TABLE"); v != "" {
		names.Users = v
	}
	if v := os.Getenv("MEMBERSHIPS_TABLE"); v != "" {
		names.Memberships = v
	}
	if v := os.Getenv("ACTIVITY_QUEUE"); v != "" {
		names.ActivityQueue = v
	}
	base, err := storage.New(connStr, names)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	rc := redis.NewClient(redisOpts)

	cacheTTL := 30 * time.Second
	if v := os.Getenv("MEMBERSHIP_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid MEMBERSHIP_CACHE_TTL: %v", err)
		}
		cacheTTL = d
	}
	store := storage.NewCache(base, rc, cacheTTL)

	testMode := os.Getenv("AUTH_TEST_MODE") == "1"
	var auth *api.Auth
	if testMode {
		auth = api.NewAuth(nil, "", "")
	} else {
		jwtAudience := os.Getenv("AUTH_AUDIENCE")
		authDomain := os.Getenv("AUTH_DOMAIN")
		if jwtAudience == "" || authDomain == "" {
			log.Fatal("missing auth config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", authDomain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, jwtAudience, "https://"+authDomain+"/")
	}

	logger := log.New()

	members := domain.NewMembershipIndex(store)
	mover := domain.NewReposition(store, members, logger)

	eventsChannel := defaultEventsChannel
	if v := os.Getenv("EVENTS_CHANNEL"); v != "" {
		eventsChannel = v
	}
	router := stream.NewRouter(logger)
	bus := stream.NewRedisBus(rc, eventsChannel, logger)
	fanout := stream.NewFanout(bus, members, logger)
	gateway := stream.NewGateway(router, fanout, members, logger)
	go bus.Run(context.Background(), router)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.Register(e, store, members, mover, fanout, auth, logger)
	api.RegisterWS(e, gateway, auth, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

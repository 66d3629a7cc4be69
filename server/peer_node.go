package server

import (
	"ocpinode/internal"
	"ocpinode/internal/config"
	"ocpinode/metrics"
	"ocpinode/models"
	"ocpinode/ocpi/auth"
	"ocpinode/ocpi/client"
	"ocpinode/ocpi/codec"
	"ocpinode/ocpi/commands"
	"ocpinode/ocpi/credentials"
	"ocpinode/ocpi/profiles"
	"ocpinode/pusher"
	"ocpinode/telegram"
	"ocpinode/utility"
)

// PeerNode assembles the OCPI node: storage, protocol core, transport
// and the operational side services.
type PeerNode struct {
	conf   *config.Config
	server *Server
	logger *internal.Logger
}

func NewPeerNode() (*PeerNode, error) {
	conf, err := config.GetConfig()
	if err != nil {
		return nil, err
	}

	logger := internal.NewLogger()
	if conf.IsDebug != nil {
		logger.SetDebugMode(*conf.IsDebug)
	}

	database, err := internal.NewMongoClient(conf)
	if err != nil {
		return nil, err
	}
	if database == nil {
		return nil, utility.Err("mongo storage is required")
	}
	logger.SetDatabase(database)

	messagePusher, err := pusher.NewPusher(conf)
	if err != nil {
		logger.Error("pusher initialization failed", err)
	}
	if messagePusher != nil {
		logger.SetMessageService(messagePusher)
	}

	if conf.Telegram.Enabled {
		bot, botErr := telegram.NewBot(conf.Telegram.ApiKey)
		if botErr != nil {
			logger.Error("telegram bot initialization failed", botErr)
		} else {
			bot.Start()
			logger.SetNotifier(bot)
		}
	}

	version := models.VersionNumber(conf.Ocpi.Version)
	versionCodec, err := codec.ForVersion(version)
	if err != nil {
		return nil, err
	}

	authenticator := auth.New(database, versionCodec)
	authenticator.SetNoAuth(conf.Ocpi.NoAuth)

	httpClient := client.New()

	node := &PeerNode{
		conf:   conf,
		logger: logger,
	}
	node.server = NewServer(conf)

	registrar := credentials.NewRegistrar(authenticator, database, httpClient, versionCodec, credentials.Identity{
		PartyName:   conf.Ocpi.PartyName,
		PartyId:     conf.Ocpi.PartyId,
		CountryCode: conf.Ocpi.CountryCode,
		VersionsUrl: node.server.VersionsUrl(),
	})
	registrar.SetLogger(logger)

	commandDispatcher := commands.NewDispatcher(database, httpClient, versionCodec, conf.Ocpi.CommandAwaitTime)
	commandDispatcher.SetLogger(logger)

	profileDispatcher := profiles.NewDispatcher(database, httpClient, versionCodec, conf.Ocpi.ProfileAwaitTime)
	profileDispatcher.SetLogger(logger)

	node.server.SetLogger(logger)
	node.server.SetDatabase(database)
	node.server.SetStore(database)
	node.server.SetAuthenticator(authenticator)
	node.server.SetRegistrar(registrar)
	node.server.SetCommandDispatcher(commandDispatcher)
	node.server.SetProfileDispatcher(profileDispatcher)

	go func() {
		if metricsErr := metrics.Listen(conf); metricsErr != nil {
			logger.Error("metrics server", metricsErr)
		}
	}()

	return node, nil
}

func (n *PeerNode) Start() error {
	return n.server.Start()
}

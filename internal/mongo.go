package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ocpinode/internal/config"
	"ocpinode/models"
	"ocpinode/ocpi"
)

const (
	collectionLog            = "sys_log"
	collectionInviteTokens   = "invite_tokens"
	collectionIntegrations   = "integrations"
	collectionLocations      = "locations"
	collectionSessions       = "sessions"
	collectionCommands       = "commands_outbox"
	collectionProfileActions = "profile_actions_outbox"
	collectionCommandResults = "command_results"
	collectionProfileResults = "profile_results"
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
	}
	return client, nil
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, err
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	err := connection.Disconnect(m.ctx)
	if err != nil {
		log.Println("mongodb disconnect error;", err)
	}
}

func (m *MongoDB) WriteLogMessage(data Data) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)
	collection := connection.Database(m.database).Collection(collectionLog)
	_, err = collection.InsertOne(m.ctx, data)
	return err
}

func (m *MongoDB) ReadLog() (interface{}, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	var logMessages []FeatureLogMessage
	collection := connection.Database(m.database).Collection(collectionLog)
	filter := bson.D{}
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: -1}}).SetLimit(1000)
	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	if err = cursor.All(m.ctx, &logMessages); err != nil {
		return nil, err
	}
	return logMessages, nil
}

// rawDocument finds one document and returns it as JSON, nil if absent.
func (m *MongoDB) rawDocument(ctx context.Context, collectionName string, filter bson.D) (json.RawMessage, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionName)
	var document bson.M
	err = collection.FindOne(ctx, filter).Decode(&document)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	delete(document, "_id")
	return json.Marshal(document)
}

func (m *MongoDB) Location(ctx context.Context, id string) (json.RawMessage, error) {
	return m.rawDocument(ctx, collectionLocations, bson.D{{Key: "id", Value: id}})
}

func (m *MongoDB) Session(ctx context.Context, id string) (json.RawMessage, error) {
	return m.rawDocument(ctx, collectionSessions, bson.D{{Key: "id", Value: id}})
}

// SendCommand queues the command for the charge-point network layer and
// acknowledges it. The network layer consumes the outbox and delivers
// the terminal result through PutCommandResult.
func (m *MongoDB) SendCommand(ctx context.Context, request *models.CommandRequest) (*models.CommandResponse, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionCommands)
	if _, err = collection.InsertOne(ctx, request); err != nil {
		return nil, err
	}
	return &models.CommandResponse{Result: models.ResponseAccepted}, nil
}

func (m *MongoDB) SendProfileAction(ctx context.Context, request *models.ProfileRequest) (*models.ChargingProfileResponse, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionProfileActions)
	if _, err = collection.InsertOne(ctx, request); err != nil {
		return nil, err
	}
	return &models.ChargingProfileResponse{Result: models.ProfileResponseAccepted}, nil
}

// ClientToken returns the bearer the counterpart gave us in its
// credentials, which is what outbound pushes to it must carry.
func (m *MongoDB) ClientToken(ctx context.Context, tokenC string) (string, error) {
	integration, err := m.Integration(ctx, tokenC)
	if err != nil {
		return "", err
	}
	if integration == nil {
		return "", fmt.Errorf("no integration for token")
	}
	return integration.Credentials.Token, nil
}

type resultDocument struct {
	CorrelationKey string `bson:"correlation_key"`
	Result         []byte `bson:"result"`
}

func (m *MongoDB) result(ctx context.Context, collectionName, correlationKey string) (json.RawMessage, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionName)
	var document resultDocument
	err = collection.FindOne(ctx, bson.D{{Key: "correlation_key", Value: correlationKey}}).Decode(&document)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return document.Result, nil
}

func (m *MongoDB) putResult(ctx context.Context, collectionName, correlationKey string, result json.RawMessage) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "correlation_key", Value: correlationKey}}
	update := bson.M{"$set": resultDocument{CorrelationKey: correlationKey, Result: result}}
	opts := options.Update().SetUpsert(true)
	collection := connection.Database(m.database).Collection(collectionName)
	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return err
}

func (m *MongoDB) CommandResult(ctx context.Context, correlationKey string) (json.RawMessage, error) {
	return m.result(ctx, collectionCommandResults, correlationKey)
}

func (m *MongoDB) ProfileResult(ctx context.Context, correlationKey string) (json.RawMessage, error) {
	return m.result(ctx, collectionProfileResults, correlationKey)
}

func (m *MongoDB) PutCommandResult(ctx context.Context, correlationKey string, result json.RawMessage) error {
	return m.putResult(ctx, collectionCommandResults, correlationKey, result)
}

func (m *MongoDB) PutProfileResult(ctx context.Context, correlationKey string, result json.RawMessage) error {
	return m.putResult(ctx, collectionProfileResults, correlationKey, result)
}

func (m *MongoDB) TokenAExists(ctx context.Context, token string) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionInviteTokens)
	filter := bson.D{{Key: "token", Value: token}, {Key: "used", Value: bson.D{{Key: "$ne", Value: true}}}}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (m *MongoDB) TokenAUsed(ctx context.Context, token string) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionInviteTokens)
	filter := bson.D{{Key: "token", Value: token}, {Key: "used", Value: true}}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (m *MongoDB) TokenCExists(ctx context.Context, token string) (bool, error) {
	connection, err := m.connect()
	if err != nil {
		return false, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionIntegrations)
	count, err := collection.CountDocuments(ctx, bson.D{{Key: "token_c", Value: token}})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (m *MongoDB) Integration(ctx context.Context, tokenC string) (*models.Integration, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionIntegrations)
	var integration models.Integration
	err = collection.FindOne(ctx, bson.D{{Key: "token_c", Value: tokenC}}).Decode(&integration)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &integration, nil
}

func (m *MongoDB) SaveIntegration(ctx context.Context, tokenA string, integration *models.Integration) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	database := connection.Database(m.database)
	if _, err = database.Collection(collectionIntegrations).InsertOne(ctx, integration); err != nil {
		return err
	}
	// the invite is single-use but stays on record as used, so a replay
	// classifies as an already registered party
	update := bson.M{"$set": bson.M{"used": true, "token_c": integration.TokenC}}
	_, err = database.Collection(collectionInviteTokens).UpdateOne(ctx, bson.D{{Key: "token", Value: tokenA}}, update)
	return err
}

func (m *MongoDB) ReplaceIntegration(ctx context.Context, oldTokenC string, integration *models.Integration) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	filter := bson.D{{Key: "token_c", Value: oldTokenC}}
	collection := connection.Database(m.database).Collection(collectionIntegrations)
	result, err := collection.ReplaceOne(ctx, filter, integration)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ocpi.ErrNotFound
	}
	return nil
}

func (m *MongoDB) DeleteIntegration(ctx context.Context, tokenC string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(collectionIntegrations)
	result, err := collection.DeleteOne(ctx, bson.D{{Key: "token_c", Value: tokenC}})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ocpi.ErrNotFound
	}
	return nil
}

package main

import (
	"encoding/json"
	"flag"
	"log"
	"strings"

	"github.com/IBM/sarama"

	"wilbur-realtime/internal/realtime"
)

// notifyctl publishes a notify envelope to the ingest topic, the same record
// the CRUD service emits after a mutation commits. Useful for smoke-testing
// a deployment's fan-out path end to end.
func main() {
	var (
		brokers = flag.String("brokers", "localhost:9092", "comma-separated Kafka brokers")
		topic   = flag.String("topic", "wilbur.notify", "notify topic")
		channel = flag.String("channel", "", "target channel, e.g. room:<uuid>:chat")
		event   = flag.String("event", "message_created", "event name")
		payload = flag.String("payload", "{}", "JSON payload")
	)
	flag.Parse()

	if *channel == "" {
		log.Fatal("-channel is required")
	}
	if _, err := realtime.ParseChannel(*channel); err != nil {
		log.Fatalf("invalid channel %q: %v", *channel, err)
	}
	if !json.Valid([]byte(*payload)) {
		log.Fatalf("payload is not valid JSON: %s", *payload)
	}

	env := struct {
		Channel string          `json:"channel"`
		Event   string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}{*channel, *event, json.RawMessage(*payload)}

	body, err := json.Marshal(env)
	if err != nil {
		log.Fatalf("failed to build envelope: %v", err)
	}

	producer, err := newProducer(strings.Split(*brokers, ","))
	if err != nil {
		log.Fatalf("failed to create producer: %v", err)
	}
	defer producer.Close()

	partition, offset, err := producer.SendMessage(&sarama.ProducerMessage{
		Topic: *topic,
		Key:   sarama.StringEncoder(*channel),
		Value: sarama.ByteEncoder(body),
	})
	if err != nil {
		log.Fatalf("failed to publish: %v", err)
	}

	log.Printf("published to %s partition=%d offset=%d", *topic, partition, offset)
}

func newProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Version = sarama.V2_0_0_0
	config.ClientID = "wilbur-notifyctl"

	return sarama.NewSyncProducer(brokers, config)
}

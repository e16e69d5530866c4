package drawchat

import (
	"crypto/tls"
	"errors"
	"net/rpc"
	"sync"
	"time"

	"github.com/dr-useless/gobkv/common"
	"github.com/shamaton/msgpack/v2"
	log "github.com/sirupsen/logrus"
)

// GobkvTokenCache keeps room tokens in a gobkv store, msgpack encoded.
// Lock is for getting the client ready, RLock for normal operations.
type GobkvTokenCache struct {
	client     *rpc.Client
	mux        *sync.RWMutex
	authSecret string
	cfg        GobkvConfig
	logger     *log.Entry
}

// DialGobkvTokenCache connects to the store described by cfg.
func DialGobkvTokenCache(cfg GobkvConfig) (*GobkvTokenCache, error) {
	kv := &GobkvTokenCache{
		mux:        new(sync.RWMutex),
		authSecret: cfg.AuthSecret,
		cfg:        cfg,
		logger:     log.WithField("component", "gobkv"),
	}
	if err := kv.dial(); err != nil {
		return nil, err
	}
	kv.logger.WithField("address", cfg.Address).Infoln("Connected to gobkv")
	return kv, nil
}

func (kv *GobkvTokenCache) Get(key string) (RoomToken, bool, error) {
	kv.mux.RLock()
	defer kv.mux.RUnlock()
	args := common.Args{
		AuthSecret: kv.authSecret,
		Key:        key,
	}
	var reply common.ValueReply
	if err := kv.client.Call("Store.Get", args, &reply); err != nil {
		return RoomToken{}, false, err
	}
	if len(reply.Value) == 0 {
		return RoomToken{}, false, nil
	}
	var token RoomToken
	if err := msgpack.Unmarshal(reply.Value, &token); err != nil {
		return RoomToken{}, false, err
	}
	return token, true, nil
}

func (kv *GobkvTokenCache) Put(key string, token RoomToken) error {
	value, err := msgpack.Marshal(token)
	if err != nil {
		return err
	}
	kv.mux.RLock()
	defer kv.mux.RUnlock()
	args := common.Args{
		AuthSecret: kv.authSecret,
		Key:        key,
		Value:      value,
	}
	var reply common.StatusReply
	return kv.client.Call("Store.Set", args, &reply)
}

func (kv *GobkvTokenCache) Close() error {
	kv.mux.Lock()
	defer kv.mux.Unlock()
	return kv.client.Close()
}

func (kv *GobkvTokenCache) dial() error {
	if kv.cfg.CertFile == "" {
		client, err := rpc.Dial("tcp", kv.cfg.Address)
		if err != nil {
			return err
		}
		kv.client = client
		return nil
	}
	cert, err := tls.LoadX509KeyPair(kv.cfg.CertFile, kv.cfg.KeyFile)
	if err != nil {
		return err
	}
	config := tls.Config{
		Certificates:       []tls.Certificate{cert},
		InsecureSkipVerify: true,
	}
	conn, err := tls.Dial("tcp", kv.cfg.Address, &config)
	if err != nil {
		return err
	}
	kv.client = rpc.NewClient(conn)
	return nil
}

func (kv *GobkvTokenCache) ping() error {
	kv.mux.RLock()
	defer kv.mux.RUnlock()
	var reply common.StatusReply
	if err := kv.client.Call("Store.Ping", common.Args{}, &reply); err != nil {
		return err
	}
	if reply.Status != common.StatusOk {
		return errors.New("ping reply was not OK")
	}
	return nil
}

// KeepClientUp pings the store every period and redials when the
// connection dropped. It returns when done is closed.
func (kv *GobkvTokenCache) KeepClientUp(period time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	printedConnError := false
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
		if err := kv.ping(); err == nil {
			continue
		}
		if !printedConnError {
			kv.logger.Warningln("Dropped connection to gobkv, will try to reconnect")
			printedConnError = true
		}
		kv.mux.Lock()
		kv.client.Close()
		if err := kv.dial(); err == nil {
			kv.logger.Infoln("Reconnected to gobkv")
			printedConnError = false
		}
		kv.mux.Unlock()
	}
}

package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/trustflow-io/escrow-go/cmd"
	"github.com/trustflow-io/escrow-go/logconfig"
)

const (
	ENV_CONFIG_FILE_PATH = "ESCROW_CONFIG"
)

func main() {
	logconfig.ConfigInfoLogger()

	// Tool to read environment variables
	viper.AutomaticEnv()

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	fmt.Printf("Escrow worker configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("Escrow worker configuration file not found: %s\n", _config_file)
		return
	}

	// Read from config file.
	success := initializeViper(_config_file)
	if !success {
		return
	}

	// Make the configuration
	ewc := PrepareEscrowWorkerConfig()
	if ewc == nil {
		fmt.Printf("Error loading escrow worker configuration\n")
		return
	}

	fmt.Println("Starting escrow worker... press Ctrl+C to kill the worker")
	// Start worker and block.
	cmd.StartWorkerAndWait(ewc)
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// PrepareEscrowWorkerConfig reads configuration variables and returns an EscrowWorkerConfig.
func PrepareEscrowWorkerConfig() *cmd.EscrowWorkerConfig {
	return &cmd.EscrowWorkerConfig{
		// chain side
		RpcUrl:       viper.GetString("RPC_URL"),
		ChainId:      viper.GetInt64("CHAIN_ID"),
		ContractAddr: viper.GetString("CONTRACT_ADDR"),
		StartBlock:   viper.GetUint64("START_BLOCK"),
		// sync tuning
		PollIntervalSec:   viper.GetInt("POLL_INTERVAL_SEC"),
		Confirmations:     viper.GetUint64("CONFIRMATIONS"),
		BatchSize:         viper.GetUint64("BATCH_SIZE"),
		MaxCatchupBatches: viper.GetInt("MAX_CATCHUP_BATCHES"),
		// state side
		DbFilePath: viper.GetString("DB_FILE_PATH"),
		// Http side
		HttpIp:   viper.GetString("HTTP_IP"),
		HttpPort: viper.GetString("HTTP_PORT"),
	}
}

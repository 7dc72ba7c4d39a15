package escrowman

import ethcommon "github.com/ethereum/go-ethereum/common"

type Config struct {
	URL             string
	ContractAddress ethcommon.Address
}

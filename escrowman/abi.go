package escrowman

// ABI of the TrustFlowEscrow contract, events only. The worker never calls
// the contract; user wallets write to it directly.
const TrustFlowEscrowABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "bytes32", "name": "agreementId", "type": "bytes32"},
			{"indexed": true, "internalType": "address", "name": "payer", "type": "address"},
			{"indexed": true, "internalType": "address", "name": "payee", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
			{"indexed": false, "internalType": "uint8", "name": "policy", "type": "uint8"},
			{"indexed": false, "internalType": "address", "name": "arbitrator", "type": "address"}
		],
		"name": "AgreementCreated",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "bytes32", "name": "agreementId", "type": "bytes32"},
			{"indexed": true, "internalType": "address", "name": "openedBy", "type": "address"}
		],
		"name": "DisputeOpened",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "bytes32", "name": "agreementId", "type": "bytes32"},
			{"indexed": true, "internalType": "address", "name": "payer", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "PaymentFunded",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "bytes32", "name": "agreementId", "type": "bytes32"},
			{"indexed": true, "internalType": "address", "name": "payer", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "PaymentRefunded",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "bytes32", "name": "agreementId", "type": "bytes32"},
			{"indexed": true, "internalType": "address", "name": "payee", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "PaymentReleased",
		"type": "event"
	}
]`

package feed

// battleStartQuery lists every currently-open battle-start record.
const battleStartQuery = `
query BattleStarts {
  s0EternumBattleStartDataModels {
    totalCount
    edges {
      node {
        id
        event_id
        battle_entity_id
        attacker
        attacker_name
        attacker_army_entity_id
        defender_name
        defender
        defender_army_entity_id
        duration_left
        x
        y
        structure_type
        timestamp
      }
    }
  }
}
`

// settleRealmQuery finds the realm settled at a coordinate.
const settleRealmQuery = `
query SettleRealm($x: Int!, $y: Int!) {
  s0EternumSettleRealmDataModels(where: { x: $x, y: $y }) {
    edges {
      node {
        realm_name
        owner_name
      }
    }
  }
}
`

type battleStartResponse struct {
	Models struct {
		TotalCount int `json:"totalCount"`
		Edges      []struct {
			Node battleStartNode `json:"node"`
		} `json:"edges"`
	} `json:"s0EternumBattleStartDataModels"`
}

type battleStartNode struct {
	ID                   Scalar `json:"id"`
	EventID              Scalar `json:"event_id"`
	BattleEntityID       Scalar `json:"battle_entity_id"`
	Attacker             Scalar `json:"attacker"`
	AttackerName         Scalar `json:"attacker_name"`
	AttackerArmyEntityID Scalar `json:"attacker_army_entity_id"`
	DefenderName         Scalar `json:"defender_name"`
	Defender             Scalar `json:"defender"`
	DefenderArmyEntityID Scalar `json:"defender_army_entity_id"`
	DurationLeft         Scalar `json:"duration_left"`
	X                    Scalar `json:"x"`
	Y                    Scalar `json:"y"`
	StructureType        Scalar `json:"structure_type"`
	Timestamp            Scalar `json:"timestamp"`
}

type settleRealmResponse struct {
	Models struct {
		Edges []struct {
			Node struct {
				RealmName Scalar `json:"realm_name"`
				OwnerName Scalar `json:"owner_name"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"s0EternumSettleRealmDataModels"`
}
